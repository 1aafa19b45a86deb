//go:build linux || darwin

package engine

import (
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// pollFDWritable polls the raw descriptor for POLLOUT with the given
// timeout. POLLERR/POLLHUP also count as "ready": the next transfer attempt
// will then surface the real failure for classification.
func pollFDWritable(rc syscall.RawConn, timeout time.Duration) (bool, error) {
	var ready bool
	var pollErr error

	ctrlErr := rc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		for {
			n, err := unix.Poll(fds, int(timeout.Milliseconds()))
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				pollErr = fmt.Errorf("poll: %w", err)
				return
			}
			ready = n > 0
			return
		}
	})
	if ctrlErr != nil {
		return false, fmt.Errorf("poll raw conn: %w", ctrlErr)
	}
	return ready, pollErr
}
