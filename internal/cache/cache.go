// Package cache persists whole corpora between runs as plain text files, so
// repeated runs can skip the crawl.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// DefaultDir returns the default cache directory under the user cache home.
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "lexcloud")
}

// Cache stores one text file per corpus name.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir. An empty dir falls back to DefaultDir.
func New(dir string) *Cache {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Cache{dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Load returns the cached corpus text for name and whether it was present.
// A missing entry is a miss, not an error.
func (c *Cache) Load(name string) (string, bool, error) {
	data, err := os.ReadFile(c.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read cache entry %s: %w", name, err)
	}
	return string(data), true, nil
}

// Store writes the corpus text for name, creating the directory if needed.
func (c *Cache) Store(name string, text string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(c.path(name), []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", name, err)
	}
	return nil
}

// Invalidate removes the cached corpus for name if present.
func (c *Cache) Invalidate(name string) error {
	err := os.Remove(c.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cache entry %s: %w", name, err)
	}
	return nil
}

func (c *Cache) path(name string) string {
	return filepath.Join(c.dir, name+".txt")
}
