package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/npc-builder/internal/config"
	"github.com/jwebster45206/npc-builder/internal/handlers"
	"github.com/jwebster45206/npc-builder/internal/logger"
	"github.com/jwebster45206/npc-builder/internal/middleware"
	"github.com/jwebster45206/npc-builder/internal/services"
	"github.com/jwebster45206/npc-builder/internal/services/events"
	"github.com/jwebster45206/npc-builder/internal/storage"
	"github.com/jwebster45206/npc-builder/pkg/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting NPC Builder API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"session_ttl", cfg.SessionTTL,
		"rename_debounce", cfg.RenameDebounce)

	cache := services.NewRedisService(cfg.RedisURL, log)
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cacheCancel()

	if err := cache.WaitForConnection(cacheCtx); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	catalog := storage.NewCatalog(cfg.DataDir, log)
	if cfg.WatchCatalog {
		if err := catalog.Watch(ctx); err != nil {
			// the catalog still works, it just serves stale copies after edits
			log.Warn("Catalog watcher not started", "dir", catalog.Dir(), "error", err)
		}
	}

	store := storage.NewRedisStorage(cache, catalog, cfg.SessionTTL, log)
	broadcaster := events.NewBroadcaster(cache.Client(), log)
	sessions := session.NewManager(store, broadcaster, cfg.RenameDebounce, log)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(cache, store, log))

	npcHandler := handlers.NewNPCHandler(log, store)
	mux.Handle("/v1/npcs", npcHandler)
	mux.Handle("/v1/npcs/", npcHandler)

	sessionHandler := handlers.NewSessionHandler(sessions, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	mux.Handle("/v1/schema", handlers.NewSchemaHandler(log))
	mux.Handle("/v1/events/sessions/", handlers.NewEventsHandler(cache.Client(), sessions, log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(mux),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: event streams stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// pending renames are dropped; their sessions were saved on the last change
	sessions.Close()

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
