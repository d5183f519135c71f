package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/npc-builder/internal/services/events"
	"github.com/jwebster45206/npc-builder/pkg/npc"
	"github.com/jwebster45206/npc-builder/pkg/session"
)

const (
	keepaliveInterval = 30 * time.Second
	wsWriteTimeout    = 10 * time.Second
)

// EventsHandler streams document.updated events of one session, over a
// websocket when the client asks for an upgrade and as Server-Sent Events
// otherwise. The first event carries the current document.
type EventsHandler struct {
	redisClient *redis.Client
	sessions    *session.Manager
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

func NewEventsHandler(redisClient *redis.Client, sessions *session.Manager, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		redisClient: redisClient,
		sessions:    sessions,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP handles GET /v1/events/sessions/{sessionID}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) != 4 || pathParts[0] != "v1" || pathParts[1] != "events" || pathParts[2] != "sessions" {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/events/sessions/{sessionID}")
		return
	}

	sessionID, err := uuid.Parse(pathParts[3])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	s, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, h.logger, err, "Failed to load session")
		return
	}

	// subscribe before taking the snapshot so no change falls in between
	pubsub := h.redisClient.Subscribe(r.Context(), events.Channel(sessionID))
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	if _, err := pubsub.Receive(r.Context()); err != nil {
		h.logger.Error("Failed to subscribe", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}

	initial, err := snapshotEvent(sessionID, s.Document())
	if err != nil {
		h.logger.Error("Failed to build snapshot event", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to build snapshot")
		return
	}

	if websocket.IsWebSocketUpgrade(r) {
		h.serveWebsocket(w, r, sessionID, pubsub, initial)
		return
	}
	h.serveSSE(w, r, sessionID, pubsub, initial)
}

func snapshotEvent(sessionID uuid.UUID, doc *npc.Definition) (events.Event, error) {
	data, err := json.Marshal(events.DocumentUpdated{
		Filename: npc.ExportFilename(doc),
		Document: doc,
	})
	if err != nil {
		return events.Event{}, err
	}
	return events.Event{
		Type:      events.EventTypeConnected,
		SessionID: sessionID.String(),
		Data:      data,
	}, nil
}

func (h *EventsHandler) serveWebsocket(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID, pubsub *redis.PubSub, initial events.Event) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("Websocket connection established",
		"session_id", sessionID.String(),
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the read loop only notices the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(messageType int, data []byte) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(messageType, data); err != nil {
			h.logger.Debug("Websocket write failed", "session_id", sessionID, "error", err)
			return false
		}
		return true
	}

	first, err := json.Marshal(initial)
	if err != nil || !write(websocket.TextMessage, first) {
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()
	msgChan := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Websocket client disconnected", "session_id", sessionID.String())
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			if !write(websocket.TextMessage, []byte(msg.Payload)) {
				return
			}
		case <-keepalive.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (h *EventsHandler) serveSSE(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID, pubsub *redis.PubSub, initial events.Event) {
	h.logger.Info("SSE connection established",
		"session_id", sessionID.String(),
		"remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	if !h.sendSSE(w, initial) {
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()
	msgChan := pubsub.Channel()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "session_id", sessionID.String())
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			if !h.sendSSE(w, event) {
				return
			}

		case <-keepalive.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flush(w)
		}
	}
}

// sendSSE writes one event. It reports false once the client is gone.
func (h *EventsHandler) sendSSE(w http.ResponseWriter, event events.Event) bool {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
		h.logger.Debug("Failed to write event", "error", err)
		return false
	}
	flush(w)
	return true
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
