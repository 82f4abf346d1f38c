// Package codec implements the C1 codec facade: an opaque encode/decode
// boundary in front of the point-cloud codec libraries (Draco, TMF,
// LASzip, bitcode), which are out of scope for this core (spec.md §1)
// and therefore represented here as pass-through, pure implementations.
package codec

import (
	"encoding/binary"
	"math"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// Options bound one Encode call.
type Options struct {
	Format          model.EncodingFormat
	QuantizationBits int // 0 = no quantization
	MaxPoints       int // 0 = unbounded
}

// Codec is the opaque encoder/decoder boundary. Implementations must be
// pure functions of their input (no shared mutable state) so that they are
// safe to run concurrently across (stream, layer) pairs; ordering within a
// single (stream, layer) is the caller's responsibility (internal/codec.Pool).
type Codec interface {
	Encode(points model.Points, opts Options) ([]byte, error)
	Decode(data []byte) (model.Points, error)
}

// ForFormat resolves the Codec implementation for an encoding format.
func ForFormat(format model.EncodingFormat) (Codec, error) {
	switch format {
	case model.FormatPly, "":
		return plyCodec{}, nil
	case model.FormatDraco:
		return dracoCodec{}, nil
	case model.FormatLASzip:
		return laszipCodec{}, nil
	case model.FormatTmf:
		return tmfCodec{}, nil
	case model.FormatBitcode:
		return bitcodeCodec{}, nil
	default:
		return nil, model.NewError(model.ErrInvalidArgument, "unknown encoding format %q", format)
	}
}

// quantize rounds a float32 coordinate to the nearest multiple of 2^-bits
// (bits fractional bits of precision), per spec.md §4.1's quantization_bits
// knob; the result stays a float32. bits<=0 or bits>=32 disables
// quantization (full f32 passthrough).
func quantize(v float32, bits int) float32 {
	if bits <= 0 || bits >= 32 {
		return v
	}
	scale := float32(int64(1) << uint(bits))
	return float32(math.Round(float64(v*scale))) / scale
}

func clampPoints(points model.Points, maxPoints int) model.Points {
	if maxPoints <= 0 || points.Len() <= maxPoints {
		return points
	}
	return points.Slice(0, maxPoints)
}

// rawEncode is the shared wire layout for every opaque codec in this repo:
// a small header (point count, has-color flag) followed by quantized
// positions and optional colors. Each concrete codec tags its own magic
// byte so Decode can refuse to cross-read another codec's bytes.
func rawEncode(magic byte, points model.Points, opts Options) []byte {
	points = clampPoints(points, opts.MaxPoints)
	hasColor := len(points.Colors) > 0

	buf := make([]byte, 0, 6+points.Len()*12)
	buf = append(buf, magic)
	if hasColor {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(points.Len()))
	buf = append(buf, countBuf[:]...)

	var f [4]byte
	for i, p := range points.Positions {
		x := quantize(p.X, opts.QuantizationBits)
		y := quantize(p.Y, opts.QuantizationBits)
		z := quantize(p.Z, opts.QuantizationBits)
		binary.LittleEndian.PutUint32(f[:], math.Float32bits(x))
		buf = append(buf, f[:]...)
		binary.LittleEndian.PutUint32(f[:], math.Float32bits(y))
		buf = append(buf, f[:]...)
		binary.LittleEndian.PutUint32(f[:], math.Float32bits(z))
		buf = append(buf, f[:]...)
		if hasColor {
			c := points.Colors[i]
			buf = append(buf, c.R, c.G, c.B)
		}
	}
	return buf
}

func rawDecode(magic byte, data []byte) (model.Points, error) {
	if len(data) < 6 {
		return model.Points{}, model.NewError(model.ErrCodecError, "truncated header")
	}
	if data[0] != magic {
		return model.Points{}, model.NewError(model.ErrCodecError, "codec mismatch: expected magic %x, got %x", magic, data[0])
	}
	hasColor := data[1] == 1
	count := int(binary.LittleEndian.Uint32(data[2:6]))

	stride := 12
	if hasColor {
		stride += 3
	}
	want := 6 + count*stride
	if len(data) < want {
		return model.Points{}, model.NewError(model.ErrCodecError, "truncated payload: want %d bytes, have %d", want, len(data))
	}

	out := model.Points{Positions: make([]model.Point3, count)}
	if hasColor {
		out.Colors = make([]model.ColorRGB, count)
	}

	off := 6
	for i := 0; i < count; i++ {
		x := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))
		z := math.Float32frombits(binary.LittleEndian.Uint32(data[off+8:]))
		out.Positions[i] = model.Point3{X: x, Y: y, Z: z}
		off += 12
		if hasColor {
			out.Colors[i] = model.ColorRGB{R: data[off], G: data[off+1], B: data[off+2]}
			off += 3
		}
	}
	return out, nil
}

const (
	magicPly     = 0x01
	magicDraco   = 0x02
	magicLASzip  = 0x03
	magicTmf     = 0x04
	magicBitcode = 0x05
)

type plyCodec struct{}

func (plyCodec) Encode(points model.Points, opts Options) ([]byte, error) {
	return rawEncode(magicPly, points, opts), nil
}
func (plyCodec) Decode(data []byte) (model.Points, error) { return rawDecode(magicPly, data) }

type dracoCodec struct{}

func (dracoCodec) Encode(points model.Points, opts Options) ([]byte, error) {
	return rawEncode(magicDraco, points, opts), nil
}
func (dracoCodec) Decode(data []byte) (model.Points, error) { return rawDecode(magicDraco, data) }

type laszipCodec struct{}

func (laszipCodec) Encode(points model.Points, opts Options) ([]byte, error) {
	return rawEncode(magicLASzip, points, opts), nil
}
func (laszipCodec) Decode(data []byte) (model.Points, error) { return rawDecode(magicLASzip, data) }

type tmfCodec struct{}

func (tmfCodec) Encode(points model.Points, opts Options) ([]byte, error) {
	return rawEncode(magicTmf, points, opts), nil
}
func (tmfCodec) Decode(data []byte) (model.Points, error) { return rawDecode(magicTmf, data) }

type bitcodeCodec struct{}

func (bitcodeCodec) Encode(points model.Points, opts Options) ([]byte, error) {
	return rawEncode(magicBitcode, points, opts), nil
}
func (bitcodeCodec) Decode(data []byte) (model.Points, error) { return rawDecode(magicBitcode, data) }
