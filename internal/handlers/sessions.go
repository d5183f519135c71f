package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-builder/internal/logger"
	"github.com/jwebster45206/npc-builder/pkg/edit"
	"github.com/jwebster45206/npc-builder/pkg/npc"
	"github.com/jwebster45206/npc-builder/pkg/session"
)

// maxDocumentBytes caps imported documents and edit payloads.
const maxDocumentBytes = 4 << 20

// CreateSessionRequest starts a session from a stored NPC, or from the
// default template when NPCID is empty.
type CreateSessionRequest struct {
	NPCID string `json:"npc_id,omitempty"`
}

// SessionResponse describes a session and its current document.
type SessionResponse struct {
	ID        uuid.UUID       `json:"id"`
	Filename  string          `json:"filename"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Document  *npc.Definition `json:"document"`
}

// RenameRequest is one keystroke (or the blur) of a parameter name field.
type RenameRequest struct {
	Key  string `json:"key"`
	Text string `json:"text"`
	Blur bool   `json:"blur,omitempty"`
}

type RenameResponse struct {
	Status string `json:"status"`
}

type ValidateResponse struct {
	Valid  bool        `json:"valid"`
	Issues []npc.Issue `json:"issues"`
}

type SessionHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewSessionHandler(sessions *session.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// ServeHTTP handles HTTP requests for editing sessions
// Routes:
// POST   /v1/sessions               - Create a session
// GET    /v1/sessions/{id}          - Read the session document
// PUT    /v1/sessions/{id}          - Import a document (JSON or YAML)
// DELETE /v1/sessions/{id}          - End the session
// POST   /v1/sessions/{id}/edits    - Apply an edit command
// POST   /v1/sessions/{id}/rename   - Debounced parameter rename
// GET    /v1/sessions/{id}/export   - Download the document
// GET    /v1/sessions/{id}/validate - Validation issues
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Unknown session endpoint")
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to load session")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.writeSession(w, http.StatusOK, s, s.Document())
	case action == "" && r.Method == http.MethodPut:
		h.handleImport(w, r, s)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case action == "edits" && r.Method == http.MethodPost:
		h.handleEdit(w, r, s)
	case action == "rename" && r.Method == http.MethodPost:
		h.handleRename(w, r, s)
	case action == "export" && r.Method == http.MethodGet:
		h.handleExport(w, s)
	case action == "validate" && r.Method == http.MethodGet:
		issues := npc.Validate(s.Document())
		if issues == nil {
			issues = []npc.Issue{}
		}
		writeJSON(w, h.logger, http.StatusOK, ValidateResponse{Valid: !npc.HasErrors(issues), Issues: issues})
	case action != "" && action != "edits" && action != "rename" && action != "export" && action != "validate":
		writeError(w, h.logger, http.StatusNotFound, "Unknown session endpoint")
	default:
		h.logger.Warn("Method not allowed for session endpoint", "method", r.Method, "action", action)
		writeError(w, h.logger, http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not allowed", r.Method))
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	s, err := h.sessions.Create(r.Context(), req.NPCID)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to create session")
		return
	}
	h.writeSession(w, http.StatusCreated, s, s.Document())
}

func (h *SessionHandler) handleImport(w http.ResponseWriter, r *http.Request, s *session.Session) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var doc *npc.Definition
	if isYAML(r.Header.Get("Content-Type")) {
		doc, err = npc.ParseYAML(data)
		if err == nil {
			doc, err = s.Replace(doc)
		}
	} else {
		doc, err = s.Import(data)
	}
	if err != nil {
		logger.WithError(logger.WithSession(h.logger, s.ID().String()), err).Debug("Import rejected")
		writeDomainError(w, h.logger, err, "Failed to import document")
		return
	}
	h.writeSession(w, http.StatusOK, s, doc)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, err, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleEdit(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var cmd edit.Command
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentBytes)).Decode(&cmd); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid edit command")
		return
	}

	doc, err := s.Apply(cmd)
	if err != nil {
		logger.WithError(logger.WithSession(h.logger, s.ID().String()), err).Debug("Edit rejected", "op", cmd.Op)
		writeDomainError(w, h.logger, err, "Failed to apply edit")
		return
	}
	h.writeSession(w, http.StatusOK, s, doc)
}

func (h *SessionHandler) handleRename(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var req RenameRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentBytes)).Decode(&req); err != nil || req.Key == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid rename request")
		return
	}

	if req.Blur {
		if s.RenameBlur(req.Key, req.Text) {
			h.writeSession(w, http.StatusOK, s, s.Document())
			return
		}
		writeJSON(w, h.logger, http.StatusOK, RenameResponse{Status: "idle"})
		return
	}

	s.RenameInput(req.Key, req.Text)
	writeJSON(w, h.logger, http.StatusAccepted, RenameResponse{Status: "pending"})
}

func (h *SessionHandler) handleExport(w http.ResponseWriter, s *session.Session) {
	data, filename, err := s.Export()
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to export document")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write export", "session_id", s.ID(), "error", err)
	}
}

func (h *SessionHandler) writeSession(w http.ResponseWriter, status int, s *session.Session, doc *npc.Definition) {
	writeJSON(w, h.logger, status, SessionResponse{
		ID:        s.ID(),
		Filename:  npc.ExportFilename(doc),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
		Document:  doc,
	})
}

func isYAML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.Contains(mediaType, "yaml")
}
