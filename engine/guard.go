package engine

import (
	"fmt"
	"syscall"
	"time"
)

const (
	// DefaultPollInterval is how often the guard re-checks a blocked sink.
	DefaultPollInterval = 250 * time.Millisecond
	// DefaultDeadPeerBudget is the total time a sink may stay unwritable for
	// one chunk before the peer is declared dead.
	DefaultDeadPeerBudget = 60 * time.Second
)

// Guard detects peers that accepted the connection but stopped draining it
// (the slow-loris case). Each non-ready poll accumulates wall-clock time
// since the first would-block for the current chunk; once the budget is
// spent the guard reports ErrDeadPeer. Polling, rather than one indefinite
// wait, bounds worst-case latency to a single interval.
type Guard struct {
	Interval time.Duration
	Budget   time.Duration

	// pollOnce is swappable for tests. It waits up to Interval for the sink
	// to become writable and reports readiness.
	pollOnce func(sink Sink, timeout time.Duration) (bool, error)

	blockedSince time.Time
}

// NewGuard creates a Guard; non-positive arguments select the defaults.
func NewGuard(interval, budget time.Duration) *Guard {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if budget <= 0 {
		budget = DefaultDeadPeerBudget
	}
	return &Guard{Interval: interval, Budget: budget, pollOnce: pollSinkWritable}
}

// Rearm resets the accumulated blocked time. The session calls it whenever a
// chunk makes progress so the budget always measures one continuous stall.
func (g *Guard) Rearm() {
	g.blockedSince = time.Time{}
}

// AwaitWritable blocks until the sink accepts writes again or the dead-peer
// budget is exhausted, in which case it returns ErrDeadPeer.
func (g *Guard) AwaitWritable(sink Sink) error {
	if g.blockedSince.IsZero() {
		g.blockedSince = time.Now()
	}
	for {
		if time.Since(g.blockedSince) >= g.Budget {
			return ErrDeadPeer
		}
		ready, err := g.pollOnce(sink, g.Interval)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
	}
}

// pollSinkWritable waits up to timeout for the sink to become writable,
// preferring a sink-provided poller over raw descriptor polling.
func pollSinkWritable(sink Sink, timeout time.Duration) (bool, error) {
	if wp, ok := sink.(WritePoller); ok {
		return wp.AwaitWritable(timeout)
	}
	sc, ok := sink.(syscall.Conn)
	if !ok {
		// Only the raw sendfile path reports ErrWouldBlock, and it requires
		// a syscall.Conn sink, so this is unreachable in practice.
		return true, nil
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return false, fmt.Errorf("poll raw conn: %w", err)
	}
	return pollFDWritable(rc, timeout)
}
