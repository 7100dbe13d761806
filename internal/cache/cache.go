// Package cache is a small file-backed cache for blobs that must survive a
// restart without the remote store: the encrypted vault record and its
// companion flags.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

type Cache struct {
	dir string
}

func New(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) path(name string) string {
	return filepath.Join(c.dir, name)
}

// Read returns the cached blob. Missing entries return os.ErrNotExist.
func (c *Cache) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(c.path(name))
	if err != nil {
		return nil, fmt.Errorf("reading cache entry %s: %w", name, err)
	}

	return data, nil
}

// Write stores the blob, creating the cache directory if needed.
func (c *Cache) Write(name string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	if err := os.WriteFile(c.path(name), data, 0o600); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", name, err)
	}

	return nil
}

// Delete removes the entry; deleting a missing entry is not an error.
func (c *Cache) Delete(name string) error {
	if err := os.Remove(c.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting cache entry %s: %w", name, err)
	}

	return nil
}

// Exists reports whether the entry is present.
func (c *Cache) Exists(name string) bool {
	_, err := os.Stat(c.path(name))
	return err == nil
}
