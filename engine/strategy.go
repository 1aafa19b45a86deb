package engine

import (
	"errors"
	"io"
	"net"
	"syscall"
	"time"
)

// Sink is the write side of one transfer session: a connection-like resource
// the session exclusively owns and closes exactly once. Concrete sinks may
// additionally expose syscall.Conn (raw fd access for zero-copy and
// writability polling), io.ReaderFrom (kernel-assisted bulk copy), or
// WritePoller; the dispatcher probes for these once per session.
type Sink interface {
	io.Writer
	io.Closer
}

// WritePoller is an optional sink capability: wait up to timeout for the
// sink to accept writes again. Sinks without a raw fd can implement it to
// participate in dead-peer detection.
type WritePoller interface {
	AwaitWritable(timeout time.Duration) (ready bool, err error)
}

// ErrWouldBlock reports that the sink cannot accept bytes right now without
// waiting. It is non-fatal: the session hands off to the Guard and retries
// the same range.
var ErrWouldBlock = errors.New("sink would block")

// ErrDeadPeer reports that the sink never became writable within the
// dead-peer budget. It is a disconnect-class failure.
var ErrDeadPeer = errors.New("peer stopped accepting writes")

// Strategy transfers one chunk of a file to the sink. Implementations must
// honor the exact (off, length) given, never an internal cursor, so that a
// retried range lands on the same bytes. Returning n < length with a nil
// error is valid partial progress; returning (0, nil) for length > 0 means
// the file ran out of bytes early.
type Strategy interface {
	Name() string
	Transfer(item *FileItem, off, length int64, sink Sink) (int64, error)
}

type errKind int

const (
	// kindApplication is any failure not attributable to the peer: it
	// aborts the session, fires the error hook and propagates to the caller.
	kindApplication errKind = iota
	// kindTransient is a write failure worth retrying (broken pipe on an
	// otherwise live connection); it escalates to a disconnect after the
	// retry budget.
	kindTransient
	// kindDisconnect means the peer went away; the session aborts quietly.
	kindDisconnect
)

// classify buckets a transfer failure into the session's error taxonomy.
// The single classification point here keeps the session free of scattered
// error-type matching.
func classify(err error) errKind {
	switch {
	case errors.Is(err, ErrDeadPeer),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, syscall.ENOTCONN),
		errors.Is(err, syscall.ESHUTDOWN):
		return kindDisconnect
	case errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return kindTransient
	}
	return kindApplication
}
