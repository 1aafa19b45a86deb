package wire

import (
	"fmt"
	"io"
	"net"

	"github.com/klauspost/compress/zstd"
)

// ZstdSink compresses everything written to it onto the underlying
// connection. A compressed stream has no stable byte mapping to the source
// files, so senders must pin the engine's buffered strategy when using it.
type ZstdSink struct {
	conn net.Conn
	enc  *zstd.Encoder
}

// NewZstdSink wraps conn in a zstd-compressing sink.
func NewZstdSink(conn net.Conn) (*ZstdSink, error) {
	enc, err := zstd.NewWriter(conn)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return &ZstdSink{conn: conn, enc: enc}, nil
}

func (z *ZstdSink) Write(p []byte) (int, error) {
	return z.enc.Write(p)
}

// Close flushes the compressed frame, then closes the connection. The
// session calls this exactly once.
func (z *ZstdSink) Close() error {
	encErr := z.enc.Close()
	connErr := z.conn.Close()
	if encErr != nil {
		return encErr
	}
	return connErr
}

// NewZstdReader wraps the receive side of a compressed stream.
func NewZstdReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return dec.IOReadCloser(), nil
}
