// Package session owns NPC definitions while they are being edited. A Session
// serializes every operation on its document; the Manager creates sessions,
// keeps live ones in memory and persists snapshots.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/npc-builder/pkg/edit"
	"github.com/jwebster45206/npc-builder/pkg/npc"
)

var (
	// ErrClipboardUnavailable is returned when the system clipboard rejects a write.
	ErrClipboardUnavailable = errors.New("clipboard unavailable")
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// Clipboard writes text to a clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// ChangeFunc is called after each successful change with a copy of the new
// document. It runs while the session is locked and must not call back into
// the session.
type ChangeFunc func(id uuid.UUID, doc *npc.Definition)

// Session is one editing session owning one document.
type Session struct {
	id        uuid.UUID
	createdAt time.Time

	mu        sync.Mutex
	doc       *npc.Definition
	updatedAt time.Time
	closed    bool
	onChange  ChangeFunc
	renames   *Debouncer
	logger    *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithRenameDelay sets the rename debounce delay.
func WithRenameDelay(d time.Duration) Option {
	return func(s *Session) { s.renames = NewDebouncer(d) }
}

// WithOnChange registers the change hook.
func WithOnChange(fn ChangeFunc) Option {
	return func(s *Session) { s.onChange = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithCreatedAt restores the creation time of a persisted session.
func WithCreatedAt(t time.Time) Option {
	return func(s *Session) { s.createdAt = t }
}

// New starts a session on doc. A nil doc starts from the default template.
func New(id uuid.UUID, doc *npc.Definition, opts ...Option) *Session {
	if doc == nil {
		doc = npc.Default()
	}
	now := time.Now()
	s := &Session{
		id:        id,
		createdAt: now,
		doc:       doc.Clone(),
		updatedAt: now,
		renames:   NewDebouncer(DefaultRenameDelay),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Document returns a copy of the current document.
func (s *Session) Document() *npc.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Update applies fn to the current document. On error the document is left
// as it was.
func (s *Session) Update(fn func(*npc.Definition) (*npc.Definition, error)) (*npc.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	next, err := fn(s.doc)
	if err != nil {
		return s.doc.Clone(), err
	}
	s.commit(next)
	return next.Clone(), nil
}

// Apply runs an edit command.
func (s *Session) Apply(cmd edit.Command) (*npc.Definition, error) {
	return s.Update(cmd.Apply)
}

// Import replaces the document with parsed JSON text. If the text is not a
// definition the current document is untouched and the error wraps
// npc.ErrInvalidDocument.
func (s *Session) Import(data []byte) (*npc.Definition, error) {
	doc, err := npc.Parse(data)
	if err != nil {
		return nil, err
	}
	return s.Replace(doc)
}

// Replace swaps in a whole document.
func (s *Session) Replace(doc *npc.Definition) (*npc.Definition, error) {
	return s.Update(func(*npc.Definition) (*npc.Definition, error) {
		return doc.Clone(), nil
	})
}

// Export returns the document as indented JSON and the filename to save it under.
func (s *Session) Export() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := npc.Export(s.doc)
	if err != nil {
		return nil, "", err
	}
	return data, npc.ExportFilename(s.doc), nil
}

// Copy writes the exported JSON to cb.
func (s *Session) Copy(cb Clipboard) error {
	data, _, err := s.Export()
	if err != nil {
		return err
	}
	if cb == nil {
		return ErrClipboardUnavailable
	}
	if err := cb.WriteAll(string(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}
	return nil
}

// RenameInput records a keystroke in the name field of parameter key. The
// rename to text commits once the field has been left alone for the debounce
// delay; a later keystroke for the same key restarts the wait.
func (s *Session) RenameInput(key, text string) {
	s.renames.Trigger(key, func() {
		s.rename(key, text)
	})
}

// RenameBlur commits a pending rename of key to text immediately. Without a
// pending rename it does nothing. It reports whether a rename was pending.
func (s *Session) RenameBlur(key, text string) bool {
	if !s.renames.Cancel(key) {
		return false
	}
	s.rename(key, text)
	return true
}

// RenamePending reports whether a rename of key is waiting on its timer.
func (s *Session) RenamePending(key string) bool {
	return s.renames.Pending(key)
}

func (s *Session) rename(key, text string) {
	_, err := s.Update(func(d *npc.Definition) (*npc.Definition, error) {
		return edit.RenameParameter(d, key, text), nil
	})
	if err != nil {
		s.logger.Debug("Dropped parameter rename", "session_id", s.id, "key", key, "error", err)
		return
	}
	s.logger.Debug("Parameter renamed", "session_id", s.id, "from", key, "to", text)
}

// Close stops pending renames. Later operations fail with ErrClosed.
func (s *Session) Close() {
	s.renames.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// commit must be called with mu held.
func (s *Session) commit(next *npc.Definition) {
	s.doc = next
	s.updatedAt = time.Now()
	if s.onChange != nil {
		s.onChange(s.id, next.Clone())
	}
}
