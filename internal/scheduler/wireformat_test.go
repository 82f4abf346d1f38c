package scheduler

import (
	"bytes"
	"crypto/md5"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

func TestApplyWireFormatNoopByDefault(t *testing.T) {
	in := []byte("raw codec bytes")
	out, err := applyWireFormat(in, model.Settings{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("expected untouched bytes, got %v", out)
	}
}

func TestApplyWireFormatGzipIsDecodable(t *testing.T) {
	enc := "gzip"
	in := []byte("raw codec bytes to compress")
	out, err := applyWireFormat(in, model.Settings{ContentEncoding: &enc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer zr.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(zr); err != nil {
		t.Fatalf("gzip read: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), in) {
		t.Fatalf("round trip mismatch: got %q want %q", buf.Bytes(), in)
	}
}

func TestApplyWireFormatMD5AppendsDigestOverFinalPayload(t *testing.T) {
	yes := true
	in := []byte("raw codec bytes")
	out, err := applyWireFormat(in, model.Settings{MD5: &yes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in)+16 {
		t.Fatalf("expected payload+16 bytes, got %d", len(out))
	}
	want := md5.Sum(in)
	if !bytes.Equal(out[len(in):], want[:]) {
		t.Fatalf("digest mismatch")
	}
}

func TestApplyWireFormatMD5AppliedAfterGzip(t *testing.T) {
	enc := "gzip"
	yes := true
	in := []byte("raw codec bytes")
	out, err := applyWireFormat(in, model.Settings{ContentEncoding: &enc, MD5: &yes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	compressed := out[:len(out)-16]
	want := md5.Sum(compressed)
	if !bytes.Equal(out[len(out)-16:], want[:]) {
		t.Fatalf("expected digest over the compressed bytes, not the raw input")
	}
}
