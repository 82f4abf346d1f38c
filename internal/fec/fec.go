// Package fec implements the C2 FEC engine: a systematic Reed-Solomon
// block code over the broadcast (layer 0) byte stream, as specified in
// spec.md §4.2, built on github.com/klauspost/reedsolomon — the erasure
// coding library named in the reference corpus's own dependency surface
// (see repository DESIGN.md).
package fec

import (
	"encoding/binary"

	"github.com/klauspost/reedsolomon"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// KMax bounds the number of source symbols per block, keeping the
// Reed-Solomon matrix inversion cost reasonable (spec.md §4.2).
const KMax = 256

// Symbol is one FEC-coded unit on the wire, carrying the header named in
// spec.md §3 ("FEC Block").
type Symbol struct {
	FrameID    uint64
	Layer      int
	SymbolIdx  int
	K          int
	R          int
	S          int // symbol size
	PayloadLen int // original (unpadded) buffer length
	Payload    []byte
}

// Block is the full set of k systematic + r repair symbols for one frame's
// base layer.
type Block struct {
	FrameID    uint64
	Layer      int
	K          int
	R          int
	S          int
	PayloadLen int
	Symbols    []Symbol
}

// chooseSymbolSize picks S so that k = ceil(len/S) <= KMax, per spec.md §4.2.
func chooseSymbolSize(length int) int {
	if length == 0 {
		return 1
	}
	s := (length + KMax - 1) / KMax
	if s < 1 {
		s = 1
	}
	return s
}

// Encode slices buf into k systematic source symbols of size S (the last
// padded with zeroes) and computes r = ceil(k*fecPercentage) repair
// symbols via Reed-Solomon. fecPercentage must be in [0,1].
func Encode(frameID uint64, layer int, buf []byte, fecPercentage float64) (Block, error) {
	if fecPercentage < 0 || fecPercentage > 1 {
		return Block{}, model.NewError(model.ErrInvalidArgument, "fec_percentage %.3f out of range [0,1]", fecPercentage)
	}

	s := chooseSymbolSize(len(buf))
	k := (len(buf) + s - 1) / s
	if k < 1 {
		k = 1
	}
	r := int(ceilMul(k, fecPercentage))
	if r < 0 {
		r = 0
	}

	enc, err := reedsolomon.New(k, r)
	if err != nil {
		return Block{}, model.NewError(model.ErrCodecError, "reedsolomon.New(%d,%d): %v", k, r, err)
	}

	shards := make([][]byte, k+r)
	for i := 0; i < k; i++ {
		shard := make([]byte, s)
		lo := i * s
		hi := lo + s
		if lo < len(buf) {
			end := hi
			if end > len(buf) {
				end = len(buf)
			}
			copy(shard, buf[lo:end])
		}
		shards[i] = shard
	}
	for i := k; i < k+r; i++ {
		shards[i] = make([]byte, s)
	}

	if err := enc.Encode(shards); err != nil {
		return Block{}, model.NewError(model.ErrCodecError, "reedsolomon encode: %v", err)
	}

	block := Block{FrameID: frameID, Layer: layer, K: k, R: r, S: s, PayloadLen: len(buf)}
	for i, shard := range shards {
		block.Symbols = append(block.Symbols, Symbol{
			FrameID: frameID, Layer: layer, SymbolIdx: i,
			K: k, R: r, S: s, PayloadLen: len(buf),
			Payload: shard,
		})
	}
	return block, nil
}

// ceilMul computes ceil(k * pct) without floating point drift at the
// boundaries callers care about (pct==0 and pct==1 must be exact).
func ceilMul(k int, pct float64) int {
	if pct <= 0 {
		return 0
	}
	if pct >= 1 {
		return k
	}
	v := float64(k) * pct
	iv := int(v)
	if float64(iv) < v {
		iv++
	}
	return iv
}

// Decode reconstructs the original buffer given a set of received symbols,
// some of which may be nil (lost). Recovery succeeds iff at least k of the
// k+r symbols are present, per spec.md §4.2/§8 invariant 3 and the FEC
// boundary scenario S6.
func Decode(k, r, s, payloadLen int, received []Symbol) ([]byte, error) {
	enc, err := reedsolomon.New(k, r)
	if err != nil {
		return nil, model.NewError(model.ErrCodecError, "reedsolomon.New(%d,%d): %v", k, r, err)
	}

	shards := make([][]byte, k+r)
	present := 0
	for _, sym := range received {
		if sym.Payload == nil {
			continue
		}
		if sym.SymbolIdx < 0 || sym.SymbolIdx >= k+r {
			continue
		}
		shards[sym.SymbolIdx] = sym.Payload
		present++
	}

	if present < k {
		return nil, model.NewError(model.ErrUnrecoverableLoss, "received %d of %d required symbols", present, k)
	}

	if err := enc.Reconstruct(shards); err != nil {
		return nil, model.NewError(model.ErrUnrecoverableLoss, "reedsolomon reconstruct: %v", err)
	}

	out := make([]byte, 0, k*s)
	for i := 0; i < k; i++ {
		out = append(out, shards[i]...)
	}
	if payloadLen < len(out) {
		out = out[:payloadLen]
	}
	return out, nil
}

// header serializes a Symbol's FEC header for the wire, per spec.md §6
// ("Broadcast frames carry the FEC block header above, followed by symbol
// payload").
func (s Symbol) header() []byte {
	buf := make([]byte, 8+4+4+4+4+4+4)
	binary.LittleEndian.PutUint64(buf[0:], s.FrameID)
	binary.LittleEndian.PutUint32(buf[8:], uint32(s.Layer))
	binary.LittleEndian.PutUint32(buf[12:], uint32(s.SymbolIdx))
	binary.LittleEndian.PutUint32(buf[16:], uint32(s.K))
	binary.LittleEndian.PutUint32(buf[20:], uint32(s.R))
	binary.LittleEndian.PutUint32(buf[24:], uint32(s.S))
	binary.LittleEndian.PutUint32(buf[28:], uint32(s.PayloadLen))
	return buf
}

// MarshalWire returns the header+payload wire encoding of one symbol.
func (s Symbol) MarshalWire() []byte {
	return append(s.header(), s.Payload...)
}

// UnmarshalWire parses one symbol from its wire encoding.
func UnmarshalWire(data []byte) (Symbol, error) {
	if len(data) < 32 {
		return Symbol{}, model.NewError(model.ErrCodecError, "truncated FEC symbol header")
	}
	s := Symbol{
		FrameID:    binary.LittleEndian.Uint64(data[0:]),
		Layer:      int(binary.LittleEndian.Uint32(data[8:])),
		SymbolIdx:  int(binary.LittleEndian.Uint32(data[12:])),
		K:          int(binary.LittleEndian.Uint32(data[16:])),
		R:          int(binary.LittleEndian.Uint32(data[20:])),
		S:          int(binary.LittleEndian.Uint32(data[24:])),
		PayloadLen: int(binary.LittleEndian.Uint32(data[28:])),
	}
	s.Payload = append([]byte(nil), data[32:]...)
	return s, nil
}
