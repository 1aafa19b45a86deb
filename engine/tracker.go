package engine

import (
	"sync"
	"time"

	"github.com/franksops/sendwire/store"
)

// CheckpointConfig defines the criteria for when to persist a session's
// progress while it is still running.
type CheckpointConfig struct {
	// BytesInterval triggers a save after this many bytes have been transferred
	BytesInterval int64
	// TimeInterval triggers a save after this much time has passed
	TimeInterval time.Duration
}

// DefaultCheckpointConfig provides reasonable defaults for checkpointing
var DefaultCheckpointConfig = CheckpointConfig{
	BytesInterval: 10 * 1024 * 1024, // 10 MB
	TimeInterval:  5 * time.Second,
}

// SessionTracker journals transfer sessions to a store. It plugs into a
// session as a set of lifecycle callbacks, so the engine itself never knows
// the journal exists.
type SessionTracker struct {
	store  store.Store
	config CheckpointConfig
}

// NewSessionTracker creates a new SessionTracker
func NewSessionTracker(st store.Store, config CheckpointConfig) *SessionTracker {
	return &SessionTracker{
		store:  st,
		config: config,
	}
}

// Begin registers a pending session in the journal and returns the tracked
// handle whose Callbacks keep the record current.
func (t *SessionTracker) Begin(id, peer string, totalBytes int64, files int) (*TrackedSession, error) {
	rec := &store.SessionRecord{
		ID:         id,
		Peer:       peer,
		State:      store.StatePending,
		Files:      files,
		TotalBytes: totalBytes,
	}
	if err := t.store.SaveSession(rec); err != nil {
		return nil, err
	}
	return &TrackedSession{
		tracker:         t,
		id:              id,
		lastCheckpointT: time.Now(),
	}, nil
}

// TrackedSession binds one journal record to one running session.
type TrackedSession struct {
	tracker *SessionTracker
	id      string

	mu              sync.Mutex
	bytesSent       int64
	lastCheckpoint  int64
	lastCheckpointT time.Time
}

// Callbacks returns the lifecycle hooks that keep the journal record in step
// with the session. Chain them with any other observers the caller needs.
func (ts *TrackedSession) Callbacks() Callbacks {
	return Callbacks{
		Started:   ts.onStarted,
		BytesSent: ts.onBytesSent,
		Complete:  ts.onComplete,
		Aborted:   ts.onAborted,
		Cleanup:   ts.onCleanup,
	}
}

func (ts *TrackedSession) onStarted(int64) {
	ts.update(func(rec *store.SessionRecord) {
		rec.State = store.StateInProgress
		rec.StartedAt = time.Now()
	})
}

func (ts *TrackedSession) onBytesSent(chunk, total int64) {
	ts.mu.Lock()
	ts.bytesSent = total

	needsCheckpoint := false
	if total-ts.lastCheckpoint >= ts.tracker.config.BytesInterval {
		needsCheckpoint = true
	} else if time.Since(ts.lastCheckpointT) >= ts.tracker.config.TimeInterval {
		needsCheckpoint = true
	}
	ts.mu.Unlock()

	if needsCheckpoint {
		ts.checkpoint(total)
	}
}

func (ts *TrackedSession) onComplete(total int64) {
	ts.update(func(rec *store.SessionRecord) {
		rec.State = store.StateCompleted
		rec.BytesSent = total
		rec.EndedAt = time.Now()
	})
}

func (ts *TrackedSession) onAborted(err error) {
	ts.mu.Lock()
	sent := ts.bytesSent
	ts.mu.Unlock()

	ts.update(func(rec *store.SessionRecord) {
		rec.State = store.StateAborted
		rec.BytesSent = sent
		rec.EndedAt = time.Now()
		if err != nil {
			rec.Error = err.Error()
		}
	})
}

func (ts *TrackedSession) onCleanup(total int64) {
	// Final save so BytesSent is exact even for a mid-stream abort.
	ts.update(func(rec *store.SessionRecord) {
		rec.BytesSent = total
		if rec.EndedAt.IsZero() {
			rec.EndedAt = time.Now()
		}
	})
}

func (ts *TrackedSession) checkpoint(bytes int64) {
	// A journal hiccup must not block the transfer; checkpoints are advisory.
	rec, err := ts.tracker.store.GetSession(ts.id)
	if err == nil {
		rec.BytesSent = bytes
		_ = ts.tracker.store.SaveSession(rec)

		ts.mu.Lock()
		ts.lastCheckpoint = bytes
		ts.lastCheckpointT = time.Now()
		ts.mu.Unlock()
	}
}

func (ts *TrackedSession) update(mutate func(*store.SessionRecord)) {
	rec, err := ts.tracker.store.GetSession(ts.id)
	if err != nil {
		return
	}
	mutate(rec)
	_ = ts.tracker.store.SaveSession(rec)
}
