//go:build linux

package engine

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

const sendfileSupported = true

// sendfileStrategy issues kernel-level file-to-socket transfers through the
// sink's raw descriptor. The socket is non-blocking (the net package keeps
// it that way), so a full send buffer surfaces as ErrWouldBlock instead of
// parking the goroutine; the session's guard then polls for writability.
type sendfileStrategy struct {
	rc syscall.RawConn
}

// newSendfileStrategy returns a zero-copy strategy for the sink, or false if
// the sink does not expose a raw descriptor.
func newSendfileStrategy(sink Sink) (Strategy, bool) {
	sc, ok := sink.(syscall.Conn)
	if !ok {
		return nil, false
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, false
	}
	return &sendfileStrategy{rc: rc}, true
}

func (s *sendfileStrategy) Name() string { return "sendfile" }

func (s *sendfileStrategy) Transfer(item *FileItem, off, length int64, sink Sink) (int64, error) {
	var written int64
	var xferErr error

	ctrlErr := s.rc.Control(func(fd uintptr) {
		pos := off
		for {
			n, err := unix.Sendfile(int(fd), int(item.File.Fd()), &pos, int(length))
			if n > 0 {
				written = int64(n)
			}
			switch err {
			case nil:
				return
			case unix.EINTR:
				if written > 0 {
					return
				}
				continue
			case unix.EAGAIN:
				if written == 0 {
					xferErr = ErrWouldBlock
				}
				return
			default:
				xferErr = fmt.Errorf("sendfile: %w", err)
				return
			}
		}
	})
	if ctrlErr != nil {
		// Control fails once the sink has been closed out from under us.
		return written, fmt.Errorf("sendfile raw conn: %w", ctrlErr)
	}
	return written, xferErr
}
