package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-builder/internal/services"
)

type stubLister struct{ err error }

func (s stubLister) ListNPCs(context.Context) (map[string]string, error) {
	return map[string]string{}, s.err
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		pingErr        error
		catalogErr     error
		expectedStatus int
		expectedHealth string
		expectedCache  string
		expectedNPCs   string
	}{
		{
			name:           "healthy",
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedCache:  "healthy",
			expectedNPCs:   "healthy",
		},
		{
			name:           "unhealthy cache",
			pingErr:        errors.New("connection failed"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedCache:  "unhealthy",
			expectedNPCs:   "healthy",
		},
		{
			name:           "unreadable catalog",
			catalogErr:     errors.New("permission denied"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedCache:  "healthy",
			expectedNPCs:   "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := services.NewMockCache()
			if tt.pingErr != nil {
				cache.SetPingError(tt.pingErr)
			} else {
				cache.SetPingSuccess()
			}

			handler := NewHealthHandler(cache, stubLister{err: tt.catalogErr}, testLogger())
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.expectedHealth, resp.Status)
			assert.Equal(t, "npc-builder", resp.Service)
			assert.Equal(t, tt.expectedCache, resp.Components["cache"])
			assert.Equal(t, tt.expectedNPCs, resp.Components["catalog"])
			assert.False(t, resp.Timestamp.IsZero())
		})
	}
}

func TestHealthHandler_WithoutCatalog(t *testing.T) {
	handler := NewHealthHandler(services.NewMockCache(), nil, testLogger())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	_, ok := resp.Components["catalog"]
	assert.False(t, ok)
}
