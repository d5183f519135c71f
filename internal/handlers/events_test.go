package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-builder/internal/services/events"
	"github.com/jwebster45206/npc-builder/pkg/edit"
	"github.com/jwebster45206/npc-builder/pkg/session"
	"github.com/jwebster45206/npc-builder/pkg/storage"
)

func setupEvents(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	manager := newTestManager(t, storage.NewMockStorage(), events.NewBroadcaster(client, testLogger()))
	srv := httptest.NewServer(NewEventsHandler(client, manager, testLogger()))
	t.Cleanup(srv.Close)
	return srv, manager
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var event events.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func TestEventsHandler_Websocket(t *testing.T) {
	srv, manager := setupEvents(t)
	s, err := manager.Create(context.Background(), "")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events/sessions/" + s.ID().String()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
		if resp != nil {
			_ = resp.Body.Close()
		}
	})

	first := readEvent(t, conn)
	assert.Equal(t, events.EventTypeConnected, first.Type)
	var snapshot events.DocumentUpdated
	require.NoError(t, json.Unmarshal(first.Data, &snapshot))
	assert.Equal(t, s.Document(), snapshot.Document)

	_, err = s.Apply(edit.Command{Op: edit.OpSetField, Field: "StartState", Value: []byte(`"Sleep"`)})
	require.NoError(t, err)

	update := readEvent(t, conn)
	assert.Equal(t, events.EventTypeDocumentUpdated, update.Type)
	var payload events.DocumentUpdated
	require.NoError(t, json.Unmarshal(update.Data, &payload))
	assert.Equal(t, "Sleep", payload.Document.StartState)
}

func TestEventsHandler_SSE(t *testing.T) {
	srv, manager := setupEvents(t)
	s, err := manager.Create(context.Background(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/sessions/"+s.ID().String(), nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: {"), line)
}

func TestEventsHandler_BadRequests(t *testing.T) {
	srv, _ := setupEvents(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"wrong method", http.MethodPost, "/v1/events/sessions/6f1c2a4e-8e0a-4d5b-9a6f-0c1d2e3f4a5b", http.StatusMethodNotAllowed},
		{"bad path", http.MethodGet, "/v1/events/games/x", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/v1/events/sessions/nope", http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/v1/events/sessions/6f1c2a4e-8e0a-4d5b-9a6f-0c1d2e3f4a5b", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
