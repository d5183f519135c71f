package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/jwebster45206/npc-builder/internal/config"
	"github.com/jwebster45206/npc-builder/internal/logger"
	"github.com/jwebster45206/npc-builder/internal/services"
	"github.com/jwebster45206/npc-builder/pkg/npc"
	"github.com/jwebster45206/npc-builder/pkg/session"
)

type ConsoleConfig struct {
	NPCFile        string        `env:"NPC_FILE"`
	ExportDir      string        `env:"EXPORT_DIR" envDefault:"."`
	RenameDebounce time.Duration `env:"RENAME_DEBOUNCE" envDefault:"500ms"`
	// the terminal belongs to the UI, so logs only go to a file
	LogFile string `env:"CONSOLE_LOG"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run owns every resource the console opens, so its deferred cleanup always
// happens before main exits.
func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &ConsoleConfig{}
	if err := config.ParseEnv(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if len(os.Args) > 1 {
		cfg.NPCFile = os.Args[1]
	}

	var doc *npc.Definition
	if cfg.NPCFile != "" {
		var err error
		doc, err = loadDocument(cfg.NPCFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", cfg.NPCFile, err)
		}
	}

	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log := logger.New(logOut, "development", slog.LevelDebug)

	changes := make(chan struct{}, 1)
	s := session.New(uuid.New(), doc,
		session.WithRenameDelay(cfg.RenameDebounce),
		session.WithLogger(log),
		session.WithOnChange(func(uuid.UUID, *npc.Definition) {
			select {
			case changes <- struct{}{}:
			default:
			}
		}))
	defer s.Close()

	p := tea.NewProgram(NewConsoleUI(cfg, s, services.SystemClipboard{}, changes),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	log.Info("Console started", "npc_file", cfg.NPCFile, "export_dir", cfg.ExportDir)
	if _, err := p.Run(); err != nil {
		log.Error("Console stopped", "error", err)
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// loadDocument reads a JSON or YAML definition file.
func loadDocument(path string) (*npc.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return npc.ParseYAML(data)
	default:
		return npc.Parse(data)
	}
}
