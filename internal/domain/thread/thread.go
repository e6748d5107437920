// Package thread owns the conversation thread identity used to correlate
// chat turns with the backend agent.
package thread

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"skydeck/internal/domain/conversation"
)

// Store is the slice of the state store the manager needs.
type Store interface {
	Load() *conversation.State
	Update(func(*conversation.State)) *conversation.State
}

// NewID produces a fresh collision-resistant thread identifier. The leading
// timestamp keeps ids sortable in backend logs.
func NewID() string {
	return fmt.Sprintf("thread-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Manager creates, retrieves and rotates the persisted thread id.
type Manager struct {
	store Store
}

// NewManager creates a thread identity manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// GetOrCreate returns the persisted thread id, generating and persisting a
// new one when none exists yet.
func (m *Manager) GetOrCreate() string {
	if id := m.store.Load().ThreadID; id != "" {
		return id
	}
	id := NewID()
	m.Set(id)
	return id
}

// Set overwrites only the persisted thread id, leaving every other field of
// the blob untouched.
func (m *Manager) Set(id string) {
	m.store.Update(func(s *conversation.State) { s.ThreadID = id })
}

// Rotate replaces the thread id wholesale and returns the new value. Chat
// history and artifacts are left as they are; a rotation narrows the reset
// to conversation identity only.
func (m *Manager) Rotate() string {
	id := NewID()
	m.Set(id)
	return id
}
