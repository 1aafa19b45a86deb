package engine

import (
	"io"
	"syscall"
)

// Capabilities are the sink traits that pick a transfer strategy. They are
// probed once per session; the chosen strategy is fixed for the session's
// whole life, with no mid-stream fallback.
type Capabilities struct {
	// RawFD: the sink exposes its descriptor, enabling raw sendfile and
	// writability polling.
	RawFD bool
	// ReaderFrom: the sink can pull a file range in one kernel-assisted call.
	ReaderFrom bool
	// ForceBuffered pins the generic buffered path regardless of the above.
	ForceBuffered bool
}

// ProbeSink inspects a sink's optional interfaces.
func ProbeSink(sink Sink) Capabilities {
	caps := Capabilities{}
	if sc, ok := sink.(syscall.Conn); ok {
		if _, err := sc.SyscallConn(); err == nil {
			caps.RawFD = true
		}
	}
	if _, ok := sink.(io.ReaderFrom); ok {
		caps.ReaderFrom = true
	}
	return caps
}

// SelectStrategy maps capabilities to a strategy, in fixed priority order:
// platform zero-copy, kernel-assisted bulk copy, generic buffered copy.
func SelectStrategy(sink Sink, caps Capabilities, buffers *BufferPool) Strategy {
	if !caps.ForceBuffered {
		if caps.RawFD && sendfileSupported {
			if st, ok := newSendfileStrategy(sink); ok {
				return st
			}
		}
		if caps.ReaderFrom {
			return bulkCopyStrategy{}
		}
	}
	return newBufferedStrategy(buffers)
}

// Serve runs one complete transfer session on the sink: probe capabilities,
// fix a strategy, stream the source, settle the callbacks. It returns only
// application errors; disconnect-class failures are absorbed by the session.
func Serve(sink Sink, src Source, cb Callbacks, opts Options) error {
	caps := ProbeSink(sink)
	caps.ForceBuffered = caps.ForceBuffered || opts.ForceBuffered
	if opts.Buffers == nil {
		// Match buffers to the chunk ceiling so one Get covers one range.
		opts.Buffers = NewBufferPool(int(opts.ChunkCeiling))
	}
	strategy := SelectStrategy(sink, caps, opts.Buffers)
	return NewSession(sink, strategy, cb, opts).Run(src)
}
