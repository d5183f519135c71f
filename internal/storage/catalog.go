package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jwebster45206/npc-builder/pkg/npc"
	"github.com/jwebster45206/npc-builder/pkg/storage"
)

// catalogExts lists the accepted file extensions in lookup order.
var catalogExts = []string{".json", ".yaml", ".yml"}

// Catalog serves the stored NPC definitions under <dataDir>/npcs. An NPC's id
// is its file name without extension. Parsed files are cached until
// invalidated.
type Catalog struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	docs   map[string]*npc.Definition
	listed map[string]string
}

func NewCatalog(dataDir string, logger *slog.Logger) *Catalog {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &Catalog{
		dir:    filepath.Join(dataDir, "npcs"),
		logger: logger,
		docs:   make(map[string]*npc.Definition),
	}
}

// Dir returns the directory the catalog reads.
func (c *Catalog) Dir() string {
	return c.dir
}

// List maps display names to ids. An NPC without a plain-string
// NameTranslationKey parameter is listed under its id. Files that fail to
// parse are skipped with a warning.
func (c *Catalog) List(ctx context.Context) (map[string]string, error) {
	c.mu.RLock()
	if c.listed != nil {
		out := make(map[string]string, len(c.listed))
		for k, v := range c.listed {
			out[k] = v
		}
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	listed := make(map[string]string)
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if path != c.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !isCatalogFile(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		id := catalogID(path)
		doc, err := c.Get(ctx, id)
		if err != nil {
			c.logger.Warn("Skipping unreadable NPC file", "path", path, "error", err)
			return nil
		}
		listed[npc.DisplayName(doc, id)] = id
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to walk NPC directory", "dir", c.dir, "error", err)
		return nil, fmt.Errorf("failed to list npcs: %w", err)
	}

	c.mu.Lock()
	c.listed = listed
	c.mu.Unlock()

	out := make(map[string]string, len(listed))
	for k, v := range listed {
		out[k] = v
	}
	return out, nil
}

// Get returns a copy of the NPC id. Unknown or malformed ids wrap
// storage.ErrNPCNotFound.
func (c *Catalog) Get(ctx context.Context, id string) (*npc.Definition, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("%w: %q", storage.ErrNPCNotFound, id)
	}

	c.mu.RLock()
	doc, ok := c.docs[id]
	c.mu.RUnlock()
	if ok {
		return doc.Clone(), nil
	}

	for _, ext := range catalogExts {
		path := filepath.Join(c.dir, id+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read npc file: %w", err)
		}

		doc, err := parseCatalogFile(path, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}

		c.mu.Lock()
		c.docs[id] = doc
		c.mu.Unlock()
		return doc.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrNPCNotFound, id)
}

// Invalidate drops the cached copy of the file at path and the listing.
func (c *Catalog) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, catalogID(path))
	c.listed = nil
}

func parseCatalogFile(path string, data []byte) (*npc.Definition, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return npc.Parse(data)
	}
	return npc.ParseYAML(data)
}

func catalogID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isCatalogFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range catalogExts {
		if ext == e {
			return true
		}
	}
	return false
}
