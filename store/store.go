package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// ErrSessionNotFound is returned when a session is not in the journal.
	ErrSessionNotFound = errors.New("session not found")
)

var (
	sessionsBucket = []byte("sessions")
)

// SessionState represents the current state of a transfer session.
type SessionState string

const (
	StatePending    SessionState = "Pending"
	StateInProgress SessionState = "InProgress"
	StateCompleted  SessionState = "Completed"
	StateAborted    SessionState = "Aborted"
)

// SessionRecord is the journaled state of one transfer session. BytesSent is
// checkpointed while the session runs so a crash still leaves a usable
// progress figure.
type SessionRecord struct {
	ID         string       `json:"id"`
	Peer       string       `json:"peer"`
	State      SessionState `json:"state"`
	Files      int          `json:"files"`
	BytesSent  int64        `json:"bytes_sent"`
	TotalBytes int64        `json:"total_bytes"`
	StartedAt  time.Time    `json:"started_at,omitempty"`
	EndedAt    time.Time    `json:"ended_at,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Store defines the interface for journaling session state.
type Store interface {
	SaveSession(rec *SessionRecord) error
	GetSession(id string) (*SessionRecord, error)
	Close() error
}

// BoltStore is a Store implementation backed by bbolt.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore at the given path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// SaveSession writes a session record to the journal.
func (s *BoltStore) SaveSession(rec *SessionRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if err := b.Put([]byte(rec.ID), data); err != nil {
			return fmt.Errorf("failed to put session: %w", err)
		}

		return nil
	})
}

// GetSession retrieves a session record from the journal.
func (s *BoltStore) GetSession(id string) (*SessionRecord, error) {
	var rec SessionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrSessionNotFound
		}

		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// Close closes the underlying store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
