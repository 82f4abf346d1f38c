package egress

import (
	"context"
	"net"

	"golang.org/x/time/rate"

	"github.com/idlab-discover/Multi-path-XR/internal/fec"
	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// BroadcastSender is the FLUTE-style UDP multicast/broadcast sender. It
// optionally FEC-protects the base layer and paces datagrams through a
// token bucket sized to the channel's configured bandwidth (spec.md §4.4).
type BroadcastSender struct {
	conn          *net.UDPConn
	limiter       *rate.Limiter
	fecScheme     model.FECScheme
	fecPercentage float64
	mtu           int
}

// NewBroadcastSender dials a UDP socket to addr. bandwidthBps of 0 disables
// pacing (uncapped).
func NewBroadcastSender(addr string, bandwidthBps uint64, ch model.EgressChannel) (*BroadcastSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, model.NewError(model.ErrIO, "resolve broadcast addr %q: %v", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, model.NewError(model.ErrIO, "dial broadcast addr %q: %v", addr, err)
	}

	var limiter *rate.Limiter
	if bandwidthBps > 0 {
		limiter = rate.NewLimiter(rate.Limit(bandwidthBps/8), int(bandwidthBps/8))
	}

	return &BroadcastSender{
		conn:          conn,
		limiter:       limiter,
		fecScheme:     ch.FEC,
		fecPercentage: ch.FECPercentage,
		mtu:           1400,
	}, nil
}

func (b *BroadcastSender) Protocol() model.EgressProtocol { return model.ProtocolFlute }

// Send FEC-encodes payload (if configured) into the k+r symbols produced by
// internal/fec (symbol size is chosen there from the payload length, not
// from the sender's MTU) and writes each as a UDP datagram. Pacing is per
// datagram: if a pacer wait fails part-way through a block, the symbols
// already written stay on the wire and the rest are not sent.
func (b *BroadcastSender) Send(ctx context.Context, frameID uint64, layer int, payload []byte) error {
	if b.fecScheme == model.FECReedSolomon {
		block, err := fec.Encode(frameID, layer, payload, b.fecPercentage)
		if err != nil {
			return err
		}
		for _, sym := range block.Symbols {
			if err := b.writeDatagram(ctx, sym.MarshalWire()); err != nil {
				return err
			}
		}
		return nil
	}
	return b.writeDatagram(ctx, payload)
}

func (b *BroadcastSender) writeDatagram(ctx context.Context, buf []byte) error {
	if b.limiter != nil {
		if err := b.limiter.WaitN(ctx, len(buf)); err != nil {
			return model.NewError(model.ErrDeadlineExpired, "broadcast pacer deadline: %v", err)
		}
	}
	if _, err := b.conn.Write(buf); err != nil {
		return model.NewError(model.ErrIO, "udp write: %v", err)
	}
	return nil
}

// Backpressure is always false: UDP broadcast has no peer-side ack to stall
// on, only the pacer, which Send already blocks against.
func (b *BroadcastSender) Backpressure() bool { return false }

func (b *BroadcastSender) Close() error {
	return b.conn.Close()
}
