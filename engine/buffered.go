package engine

import (
	"fmt"
	"io"
)

// bufferedStrategy is the lowest common denominator: read a bounded slice of
// the range into a pooled buffer and hand it to the sink's Write. It works
// against any io.Writer sink, makes byte-for-byte progress and never reports
// ErrWouldBlock. This is also the fallback path for sinks that transform the
// stream (compression) and therefore cannot take a file-to-socket shortcut.
type bufferedStrategy struct {
	buffers *BufferPool
}

func newBufferedStrategy(buffers *BufferPool) *bufferedStrategy {
	if buffers == nil {
		buffers = NewBufferPool(0)
	}
	return &bufferedStrategy{buffers: buffers}
}

func (b *bufferedStrategy) Name() string { return "buffered" }

func (b *bufferedStrategy) Transfer(item *FileItem, off, length int64, sink Sink) (int64, error) {
	buf := b.buffers.Get()
	defer b.buffers.Put(buf)

	p := *buf
	if int64(len(p)) > length {
		p = p[:length]
	}

	n, rerr := item.File.ReadAt(p, off)
	if n == 0 {
		if rerr == io.EOF {
			// File shorter than the manifest claimed; not an error here.
			return 0, nil
		}
		if rerr != nil {
			return 0, fmt.Errorf("read %s at %d: %w", item.Name, off, rerr)
		}
		return 0, nil
	}

	w, werr := sink.Write(p[:n])
	if werr != nil {
		return int64(w), fmt.Errorf("buffered write: %w", werr)
	}
	return int64(w), nil
}
