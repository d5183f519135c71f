package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/npc-builder/pkg/npc"
	"github.com/jwebster45206/npc-builder/pkg/storage"
)

// Publisher announces document changes to subscribers of a session.
type Publisher interface {
	PublishDocumentUpdated(ctx context.Context, sessionID uuid.UUID, doc *npc.Definition) error
}

// persistTimeout bounds the snapshot write made after each change.
const persistTimeout = 5 * time.Second

// Manager creates sessions and keeps live ones in memory. After every change
// it saves a snapshot to storage and publishes the new document, so a session
// survives a restart for as long as its snapshot lives.
type Manager struct {
	store       storage.Storage
	publisher   Publisher
	logger      *slog.Logger
	renameDelay time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a Manager. publisher may be nil.
func NewManager(store storage.Storage, publisher Publisher, renameDelay time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		store:       store,
		publisher:   publisher,
		logger:      logger,
		renameDelay: renameDelay,
		sessions:    make(map[uuid.UUID]*Session),
	}
}

// Create starts a session on the stored NPC npcID, or on the default template
// when npcID is empty.
func (m *Manager) Create(ctx context.Context, npcID string) (*Session, error) {
	doc := npc.Default()
	if npcID != "" {
		stored, err := m.store.GetNPC(ctx, npcID)
		if err != nil {
			return nil, err
		}
		doc = stored
	}

	id := uuid.New()
	s := m.newSession(id, doc, time.Now())
	if err := m.persist(ctx, s.ID(), s.CreatedAt(), doc); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("Session created", "session_id", id, "npc_id", npcID)
	return s, nil
}

// Get returns the live session or restores it from its snapshot.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	rec, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if rec == nil || rec.Document == nil {
		return nil, ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another request may have restored it meanwhile
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s = m.newSession(id, rec.Document, rec.CreatedAt)
	m.sessions[id] = s
	m.logger.Debug("Session restored from storage", "session_id", id)
	return s, nil
}

// Delete closes the session and removes its snapshot.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	if err := m.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	m.logger.Info("Session deleted", "session_id", id)
	return nil
}

// Close stops every live session's pending renames.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}

func (m *Manager) newSession(id uuid.UUID, doc *npc.Definition, createdAt time.Time) *Session {
	return New(id, doc,
		WithCreatedAt(createdAt),
		WithRenameDelay(m.renameDelay),
		WithLogger(m.logger),
		WithOnChange(func(id uuid.UUID, doc *npc.Definition) {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := m.persist(ctx, id, createdAt, doc); err != nil {
				m.logger.Error("Failed to persist session", "session_id", id, "error", err)
			}
			if m.publisher != nil {
				if err := m.publisher.PublishDocumentUpdated(ctx, id, doc); err != nil {
					m.logger.Warn("Failed to publish document update", "session_id", id, "error", err)
				}
			}
		}),
	)
}

func (m *Manager) persist(ctx context.Context, id uuid.UUID, createdAt time.Time, doc *npc.Definition) error {
	rec := &storage.SessionRecord{
		ID:        id,
		Document:  doc,
		CreatedAt: createdAt,
		UpdatedAt: time.Now(),
	}
	if err := m.store.SaveSession(ctx, rec); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
