package engine

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxRetries is how many consecutive transient write failures a
	// session tolerates on one range before declaring the peer gone.
	DefaultMaxRetries = 100
	// DefaultRetryBackoff is the pause between transient-failure retries.
	DefaultRetryBackoff = 100 * time.Millisecond
)

// Outcome is the terminal state of a session.
type Outcome int

const (
	OutcomeRunning Outcome = iota
	OutcomeCompleted
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAborted:
		return "aborted"
	default:
		return "running"
	}
}

// Options tunes one session. The zero value selects all defaults.
type Options struct {
	// ChunkCeiling bounds the length of one transfer call.
	ChunkCeiling int64
	// PollInterval and DeadPeerBudget configure the slow-loris guard.
	PollInterval   time.Duration
	DeadPeerBudget time.Duration
	// MaxRetries and RetryBackoff bound transient-failure retries.
	MaxRetries   int
	RetryBackoff time.Duration
	// ForceBuffered makes the dispatcher skip the file-to-socket fast paths,
	// for stream-transforming sinks and platforms with broken sendfile.
	ForceBuffered bool
	// Buffers supplies the pool for the buffered strategy; nil allocates one.
	Buffers *BufferPool
	// Log receives retry/disconnect diagnostics; nil selects the standard
	// logger.
	Log *logrus.Entry
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	if o.Log == nil {
		o.Log = logrus.WithField("component", "session")
	}
	return o
}

// Session streams an ordered sequence of FileItems to one sink using a
// strategy fixed at dispatch time. It owns the sink exclusively, closes it
// exactly once, and settles all lifecycle callbacks before Run returns.
// A Session is single-use and confined to the goroutine running Run.
type Session struct {
	sink     Sink
	strategy Strategy
	planner  Planner
	guard    *Guard
	cb       Callbacks
	opts     Options
	log      *logrus.Entry

	bytesSent int64
	outcome   Outcome
	finalized bool
}

// NewSession wires a session for one sink. The callbacks are normalized so
// unset hooks are no-ops.
func NewSession(sink Sink, strategy Strategy, cb Callbacks, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		sink:     sink,
		strategy: strategy,
		planner:  NewPlanner(opts.ChunkCeiling),
		guard:    NewGuard(opts.PollInterval, opts.DeadPeerBudget),
		cb:       cb.normalized(),
		opts:     opts,
		log:      opts.Log.WithField("strategy", strategy.Name()),
	}
}

// BytesSent reports the bytes accepted by the sink so far. It is
// monotonically non-decreasing over the life of the session.
func (s *Session) BytesSent() int64 { return s.bytesSent }

// Outcome reports the terminal state once Run has returned.
func (s *Session) Outcome() Outcome { return s.outcome }

// Run drives the source through the strategy until exhaustion or a terminal
// failure. Disconnect-class failures (peer reset, dead-peer timeout,
// exhausted retries) abort the session quietly and return nil; application
// errors are returned to the caller after the sink is closed and cleanup has
// fired. A panic inside a callback does not skip finalization.
func (s *Session) Run(src Source) error {
	if s.outcome != OutcomeRunning || s.finalized {
		return fmt.Errorf("session already finished (%s)", s.outcome)
	}

	s.cb.Started(0)
	defer s.finalize()

	retries := 0
	for {
		item, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.abort(fmt.Errorf("file source: %w", err))
		}

		var off int64
		remaining := item.Size
		for remaining > 0 {
			length := s.planner.Next(remaining)
			n, terr := s.strategy.Transfer(item, off, length, s.sink)
			if n > 0 {
				off += n
				remaining -= n
				s.bytesSent += n
				retries = 0
				s.guard.Rearm()
				s.cb.BytesSent(n, s.bytesSent)
			}
			if terr == nil {
				if n == 0 {
					// Fewer bytes on disk than the manifest promised; end
					// this file early rather than spin.
					s.log.WithField("file", item.Name).Warn("file ended short of its manifest size")
					break
				}
				continue
			}

			if errors.Is(terr, ErrWouldBlock) {
				if gerr := s.guard.AwaitWritable(s.sink); gerr != nil {
					if classify(gerr) == kindDisconnect {
						return s.disconnect(gerr)
					}
					return s.abort(gerr)
				}
				continue
			}

			switch classify(terr) {
			case kindTransient:
				retries++
				if retries >= s.opts.MaxRetries {
					return s.disconnect(fmt.Errorf("%d consecutive write failures: %w", retries, terr))
				}
				s.log.WithError(terr).WithField("attempt", retries).Debug("transient write failure, retrying range")
				time.Sleep(s.opts.RetryBackoff)
			case kindDisconnect:
				return s.disconnect(terr)
			default:
				return s.abort(terr)
			}
		}
	}

	s.outcome = OutcomeCompleted
	s.cb.Complete(s.bytesSent)
	return nil
}

// disconnect settles a peer-gone failure: aborted fires, error does not, and
// nothing propagates to the caller.
func (s *Session) disconnect(err error) error {
	s.outcome = OutcomeAborted
	s.log.WithError(err).WithField("bytes_sent", s.bytesSent).Info("peer gone, aborting transfer")
	s.cb.Aborted(err)
	return nil
}

// abort settles an application failure: aborted and error both fire and the
// failure propagates to the caller after finalization.
func (s *Session) abort(err error) error {
	s.outcome = OutcomeAborted
	s.cb.Aborted(err)
	s.cb.Error(err)
	return err
}

// finalize closes the sink and fires cleanup, exactly once. It runs via
// defer on every exit path from Run, including callback panics. Calling it
// again later (Close) is a no-op.
func (s *Session) finalize() {
	if s.finalized {
		return
	}
	s.finalized = true
	if err := s.sink.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		// An already-closed sink is tolerated; anything else is only worth a
		// debug line since the transfer outcome is already settled.
		s.log.WithError(err).Debug("sink close")
	}
	s.cb.Cleanup(s.bytesSent)
}

// Close releases the session's resources. After Run it is a no-op; it exists
// so callers can use the session with defer-style cleanup.
func (s *Session) Close() error {
	s.finalize()
	return nil
}
