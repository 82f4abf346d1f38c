package supervisor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/idlab-discover/Multi-path-XR/internal/codec"
	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

func writeFrameFile(t *testing.T, dir, name string, n int) {
	t.Helper()
	c, err := codec.ForFormat(model.FormatPly)
	if err != nil {
		t.Fatalf("ForFormat: %v", err)
	}
	pts := model.Points{Positions: make([]model.Point3, n)}
	data, err := c.Encode(pts, codec.Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDatasetSourceLexicographicOrder(t *testing.T) {
	dir := t.TempDir()
	writeFrameFile(t, dir, "frame_002.bin", 2)
	writeFrameFile(t, dir, "frame_001.bin", 1)
	writeFrameFile(t, dir, "frame_003.bin", 3)

	src, err := NewDatasetSource(dir, false)
	if err != nil {
		t.Fatalf("NewDatasetSource: %v", err)
	}

	var counts []int
	for {
		pts, ok := src.Next()
		if !ok {
			break
		}
		counts = append(counts, pts.Len())
	}
	if len(counts) != 3 || counts[0] != 1 || counts[1] != 2 || counts[2] != 3 {
		t.Fatalf("expected lexicographic order [1,2,3], got %v", counts)
	}
}

func TestDatasetSourceLoops(t *testing.T) {
	dir := t.TempDir()
	writeFrameFile(t, dir, "a.bin", 1)

	src, err := NewDatasetSource(dir, true)
	if err != nil {
		t.Fatalf("NewDatasetSource: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, ok := src.Next(); !ok {
			t.Fatalf("expected should_loop source to never exhaust, iteration %d", i)
		}
	}
}

func TestDatasetSourceManifestOrder(t *testing.T) {
	dir := t.TempDir()
	writeFrameFile(t, dir, "z.bin", 9)
	writeFrameFile(t, dir, "a.bin", 1)
	manifest := "frames:\n  - a.bin\n  - z.bin\n"
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	src, err := NewDatasetSource(dir, false)
	if err != nil {
		t.Fatalf("NewDatasetSource: %v", err)
	}
	first, ok := src.Next()
	if !ok || first.Len() != 1 {
		t.Fatalf("expected manifest order to put a.bin (1 pt) first, got %+v ok=%v", first, ok)
	}
	second, ok := src.Next()
	if !ok || second.Len() != 9 {
		t.Fatalf("expected z.bin (9 pts) second, got %+v ok=%v", second, ok)
	}
}

func TestGeneratorSourceNeverExhausts(t *testing.T) {
	gen := NewGeneratorSource(model.GeneratorBasic)
	for i := 0; i < 3; i++ {
		pts, ok := gen.Next()
		if !ok || pts.Len() == 0 {
			t.Fatalf("expected basic generator to keep producing points")
		}
	}

	cube := NewGeneratorSource(model.GeneratorCube)
	pts, ok := cube.Next()
	if !ok || pts.Len() == 0 {
		t.Fatalf("expected cube generator to produce points")
	}
}
