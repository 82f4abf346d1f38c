package egress

import (
	"bufio"
	"context"
	"encoding/binary"
	"os"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// FileSender appends length-prefixed frame payloads to a buffered file,
// used for offline capture/replay egress (spec.md §4.4).
type FileSender struct {
	f *os.File
	w *bufio.Writer
}

// NewFileSender opens (creating/truncating) path for buffered append writes.
func NewFileSender(path string) (*FileSender, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, model.NewError(model.ErrIO, "create %q: %v", path, err)
	}
	return &FileSender{f: f, w: bufio.NewWriter(f)}, nil
}

func (fs *FileSender) Protocol() model.EgressProtocol { return model.ProtocolFile }

func (fs *FileSender) Send(ctx context.Context, frameID uint64, layer int, payload []byte) error {
	var header [12]byte
	binary.LittleEndian.PutUint64(header[0:], frameID)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(payload)))
	if _, err := fs.w.Write(header[:]); err != nil {
		return model.NewError(model.ErrIO, "file write header: %v", err)
	}
	if _, err := fs.w.Write(payload); err != nil {
		return model.NewError(model.ErrIO, "file write payload: %v", err)
	}
	return nil
}

// Backpressure is always false: a local buffered file never stalls the
// scheduler the way a network peer can.
func (fs *FileSender) Backpressure() bool { return false }

func (fs *FileSender) Close() error {
	if err := fs.w.Flush(); err != nil {
		return model.NewError(model.ErrIO, "flush: %v", err)
	}
	return fs.f.Close()
}
