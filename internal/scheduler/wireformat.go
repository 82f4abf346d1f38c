package scheduler

import (
	"bytes"
	"crypto/md5"

	"github.com/klauspost/compress/gzip"

	"github.com/idlab-discover/Multi-path-XR/internal/model"
)

// applyWireFormat runs the post-encode wire transforms of spec.md §9: the
// codec facade's Encode output is optionally gzip-compressed
// (content_encoding) and then optionally has a 16-byte MD5 digest appended
// over the result (md5), in that order, before the bytes ever reach a C4
// sender — and therefore before C2 FEC-protects them for broadcast.
func applyWireFormat(encoded []byte, settings model.Settings) ([]byte, error) {
	out := encoded
	if settings.ContentEncoding != nil && *settings.ContentEncoding == "gzip" {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(out); err != nil {
			return nil, model.NewError(model.ErrCodecError, "gzip content_encoding: %v", err)
		}
		if err := zw.Close(); err != nil {
			return nil, model.NewError(model.ErrCodecError, "gzip content_encoding: %v", err)
		}
		out = buf.Bytes()
	}
	if settings.MD5 != nil && *settings.MD5 {
		sum := md5.Sum(out)
		out = append(out, sum[:]...)
	}
	return out, nil
}
