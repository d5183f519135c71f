package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/npc-builder/pkg/storage"
)

// NPCHandler serves the read-only catalog of stored NPC definitions.
type NPCHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewNPCHandler(log *slog.Logger, storage storage.Storage) *NPCHandler {
	return &NPCHandler{
		log:     log,
		storage: storage,
	}
}

// ServeHTTP routes:
// GET /v1/npcs       - display name to id map
// GET /v1/npcs/{id}  - the stored definition
func (h *NPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/npcs"), "/")
	if id == "" {
		h.handleList(w, r)
		return
	}
	if strings.Contains(id, "/") || strings.Contains(id, "..") {
		writeError(w, h.log, http.StatusBadRequest, "Invalid NPC id")
		return
	}
	h.handleGet(w, r, id)
}

func (h *NPCHandler) handleList(w http.ResponseWriter, r *http.Request) {
	npcs, err := h.storage.ListNPCs(r.Context())
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to list NPCs")
		return
	}
	writeJSON(w, h.log, http.StatusOK, npcs)
}

func (h *NPCHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := h.storage.GetNPC(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to retrieve NPC")
		return
	}
	writeJSON(w, h.log, http.StatusOK, doc)
}
