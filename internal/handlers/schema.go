package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/jwebster45206/npc-builder/pkg/npc"
)

// SchemaHandler serves the JSON Schema of an NPC definition.
type SchemaHandler struct {
	logger *slog.Logger
	once   sync.Once
	schema *jsonschema.Schema
}

func NewSchemaHandler(logger *slog.Logger) *SchemaHandler {
	return &SchemaHandler{logger: logger}
}

func (h *SchemaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}
	h.once.Do(func() { h.schema = npc.Schema() })
	writeJSON(w, h.logger, http.StatusOK, h.schema)
}
