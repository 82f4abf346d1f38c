// Package supervisor implements the C6 Job Supervisor: a periodic producer
// per job, driven at fps from either a dataset folder or a procedural
// generator (spec.md §4.6).
package supervisor

import (
	"math"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/idlab-discover/Multi-path-XR/internal/codec"
	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// Source produces successive point-cloud samples for one job.
type Source interface {
	// Next returns the next sample, or ok=false when the source is
	// exhausted (dataset reached its end without should_loop).
	Next() (model.Points, bool)
}

// datasetManifest is the optional per-folder frame-ordering file. When
// absent, DatasetSource falls back to lexicographic directory listing.
type datasetManifest struct {
	Frames []string `yaml:"frames"`
}

// DatasetSource replays the frame files of one dataset folder in order,
// wrapping to the start when ShouldLoop is set (spec.md §4.6).
type DatasetSource struct {
	files      []string
	shouldLoop bool
	codec      codec.Codec
	cursor     int
}

// NewDatasetSource enumerates folder's frame files: a manifest.yaml listing
// an explicit `frames` order if present, otherwise every regular file in
// lexicographic order.
func NewDatasetSource(folder string, shouldLoop bool) (*DatasetSource, error) {
	files, err := loadManifestOrder(folder)
	if err != nil {
		return nil, err
	}
	c, err := codec.ForFormat(model.FormatPly)
	if err != nil {
		return nil, err
	}
	return &DatasetSource{files: files, shouldLoop: shouldLoop, codec: c}, nil
}

func loadManifestOrder(folder string) ([]string, error) {
	manifestPath := filepath.Join(folder, "manifest.yaml")
	if data, err := os.ReadFile(manifestPath); err == nil {
		var m datasetManifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, model.NewError(model.ErrIO, "parse manifest %q: %v", manifestPath, err)
		}
		out := make([]string, len(m.Frames))
		for i, f := range m.Frames {
			out[i] = filepath.Join(folder, f)
		}
		return out, nil
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, model.NewError(model.ErrNotFound, "dataset folder %q: %v", folder, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, filepath.Join(folder, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Next decodes and returns the next frame file's points.
func (d *DatasetSource) Next() (model.Points, bool) {
	if len(d.files) == 0 {
		return model.Points{}, false
	}
	if d.cursor >= len(d.files) {
		if !d.shouldLoop {
			return model.Points{}, false
		}
		d.cursor = 0
	}

	data, err := os.ReadFile(d.files[d.cursor])
	d.cursor++
	if err != nil {
		return model.Points{}, false
	}
	points, err := d.codec.Decode(data)
	if err != nil {
		return model.Points{}, false
	}
	return points, true
}

// GeneratorSource procedurally synthesizes point clouds; it never exhausts.
type GeneratorSource struct {
	name model.GeneratorName
	tick int
}

// NewGeneratorSource constructs a built-in procedural generator.
func NewGeneratorSource(name model.GeneratorName) *GeneratorSource {
	return &GeneratorSource{name: name}
}

func (g *GeneratorSource) Next() (model.Points, bool) {
	g.tick++
	switch g.name {
	case model.GeneratorCube:
		return g.cube(), true
	default:
		return g.basic(), true
	}
}

// basic emits a flat grid of points that drifts slowly over ticks.
func (g *GeneratorSource) basic() model.Points {
	const side = 10
	drift := float32(g.tick) * 0.01
	pts := model.Points{Positions: make([]model.Point3, 0, side*side)}
	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			pts.Positions = append(pts.Positions, model.Point3{
				X: float32(x) + drift,
				Y: float32(y),
				Z: drift,
			})
		}
	}
	return pts
}

// cube emits points sampled on the surface of a rotating unit cube.
func (g *GeneratorSource) cube() model.Points {
	const perEdge = 8
	theta := float64(g.tick) * 0.05
	cosT, sinT := float32(math.Cos(theta)), float32(math.Sin(theta))

	var pts model.Points
	faces := [][3]float32{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	for _, normal := range faces {
		for i := 0; i < perEdge; i++ {
			for j := 0; j < perEdge; j++ {
				u := float32(i)/float32(perEdge-1)*2 - 1
				v := float32(j)/float32(perEdge-1)*2 - 1
				p := faceToPoint(normal, u, v)
				rx := p.X*cosT - p.Z*sinT
				rz := p.X*sinT + p.Z*cosT
				pts.Positions = append(pts.Positions, model.Point3{X: rx, Y: p.Y, Z: rz})
			}
		}
	}
	return pts
}

func faceToPoint(normal [3]float32, u, v float32) model.Point3 {
	switch {
	case normal[0] != 0:
		return model.Point3{X: normal[0], Y: u, Z: v}
	case normal[1] != 0:
		return model.Point3{X: u, Y: normal[1], Z: v}
	default:
		return model.Point3{X: u, Y: v, Z: normal[2]}
	}
}
