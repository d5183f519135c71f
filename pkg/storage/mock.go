package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/npc-builder/pkg/npc"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*SessionRecord
	npcs      map[string]*npc.Definition
	pingError error
	saveError error
	saves     int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions: make(map[uuid.UUID]*SessionRecord),
		npcs:     make(map[string]*npc.Definition),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every SaveSession call fail with err
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSession stores a deep copy so later edits to the caller's document do
// not leak into the mock.
func (m *MockStorage) SaveSession(ctx context.Context, rec *SessionRecord) error {
	if rec == nil || rec.Document == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	stored := *rec
	stored.Document = rec.Document.Clone()
	m.sessions[rec.ID] = &stored
	m.saves++
	return nil
}

// LoadSession mocks loading a session
func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, exists := m.sessions[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	out := *rec
	out.Document = rec.Document.Clone()
	return &out, nil
}

// DeleteSession mocks deleting a session
func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// SaveCount returns how many successful SaveSession calls were made
func (m *MockStorage) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// ListNPCs mocks listing the catalog
func (m *MockStorage) ListNPCs(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string)
	for id, d := range m.npcs {
		result[npc.DisplayName(d, id)] = id
	}
	return result, nil
}

// GetNPC mocks getting a stored NPC by id
func (m *MockStorage) GetNPC(ctx context.Context, id string) (*npc.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, exists := m.npcs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNPCNotFound, id)
	}
	return d.Clone(), nil
}

// AddNPC adds a stored NPC to the mock storage (for testing)
func (m *MockStorage) AddNPC(id string, d *npc.Definition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.npcs[id] = d
}
