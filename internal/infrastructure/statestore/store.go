// Package statestore persists the conversation blob in a local bbolt file.
//
// Persistence is best-effort by contract: Load is total and returns an empty
// state on any failure (missing file, missing bucket, corrupt JSON), and Save
// swallows write failures after logging them. The in-memory state stays
// authoritative for the rest of the session either way.
package statestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"skydeck/internal/domain/conversation"
)

var (
	bucketName = []byte("conversation")
	stateKey   = []byte("state")
)

// Store owns the single bbolt-backed state blob.
type Store struct {
	db  *bolt.DB
	log zerolog.Logger
}

// Open opens (or creates) the state database at path. Open never fails the
// caller: when the file cannot be opened the returned Store degrades to an
// in-memory-only session where Load yields empty state and Save is a no-op.
func Open(path string, log zerolog.Logger) *Store {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("create state directory, persistence disabled")
		return &Store{log: log}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("open state database, persistence disabled")
		return &Store{log: log}
	}
	return &Store{db: db, log: log}
}

// Load reads and decodes the persisted conversation state. Any failure
// returns a fresh empty state, never an error.
func (s *Store) Load() *conversation.State {
	if s.db == nil {
		return conversation.NewState()
	}
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		if v := b.Get(stateKey); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("read state blob")
		return conversation.NewState()
	}
	if len(raw) == 0 {
		return conversation.NewState()
	}
	state := conversation.NewState()
	if err := json.Unmarshal(raw, state); err != nil {
		s.log.Warn().Err(err).Msg("decode state blob, starting empty")
		return conversation.NewState()
	}
	if state.Version == 0 {
		state.Version = conversation.CurrentVersion
	}
	return state
}

// Save encodes and writes the full state blob. Failures are logged and
// swallowed; the caller's in-memory state remains authoritative.
func (s *Store) Save(state *conversation.State) {
	if s.db == nil || state == nil {
		return
	}
	raw, err := json.Marshal(state)
	if err != nil {
		s.log.Warn().Err(err).Msg("encode state blob")
		return
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put(stateKey, raw)
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("write state blob")
	}
}

// Update runs a read-modify-write cycle on the full blob. All callers run on
// the single orchestrated control flow, so cycles never overlap.
func (s *Store) Update(mutate func(*conversation.State)) *conversation.State {
	state := s.Load()
	mutate(state)
	s.Save(state)
	return state
}

// Reset clears the persisted blob back to empty state.
func (s *Store) Reset() {
	s.Save(conversation.NewState())
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
