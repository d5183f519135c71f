package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/npc-builder/pkg/edit"
	"github.com/jwebster45206/npc-builder/pkg/npc"
	"github.com/jwebster45206/npc-builder/pkg/session"
	"github.com/jwebster45206/npc-builder/pkg/storage"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err, "status", status)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

// statusFor maps domain errors to HTTP status codes. Anything unrecognised is
// a server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, npc.ErrInvalidDocument),
		errors.Is(err, npc.ErrInvalidValue),
		errors.Is(err, edit.ErrUnknownOperation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, storage.ErrNPCNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with the status statusFor picks. Server errors
// are logged and their detail is not sent to the client.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg, "error", err)
		writeError(w, logger, status, msg)
		return
	}
	writeError(w, logger, status, err.Error())
}
