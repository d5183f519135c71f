package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/npc-builder/internal/services"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// NPCLister is the part of the storage the health check reads.
type NPCLister interface {
	ListNPCs(ctx context.Context) (map[string]string, error)
}

type HealthHandler struct {
	cache   services.Cache
	catalog NPCLister
	logger  *slog.Logger
}

// NewHealthHandler checks the cache and, when catalog is not nil, that the
// stored NPC catalog can be listed.
func NewHealthHandler(cache services.Cache, catalog NPCLister, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		cache:   cache,
		catalog: catalog,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	if err := h.cache.Ping(ctx); err != nil {
		h.logger.Warn("Cache health check failed", "error", err)
		components["cache"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["cache"] = "healthy"
	}

	if h.catalog != nil {
		if _, err := h.catalog.ListNPCs(ctx); err != nil {
			h.logger.Warn("Catalog health check failed", "error", err)
			components["catalog"] = "unhealthy"
			overallStatus = "degraded"
		} else {
			components["catalog"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "npc-builder",
		Components: components,
	})
}
