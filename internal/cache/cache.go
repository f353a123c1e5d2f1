// Package cache stores the issues found in a file, keyed by the file
// content and by the queries that were run over it.
package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gnoswap-labs/ssr/internal/types"
)

const fileName = "ssr_cache.gob"

// Entry is one cached search outcome.
type Entry struct {
	Issues       []types.Issue
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Cache is safe for concurrent use. Changes are kept in memory until
// Save.
type Cache struct {
	Dir string

	mu      sync.Mutex
	entries map[string]Entry
	maxAge  time.Duration
	dirty   bool
}

// New opens the cache in dir, creating the directory when needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	c := &Cache{
		Dir:     dir,
		entries: make(map[string]Entry),
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return c, nil
}

func (c *Cache) path() string { return filepath.Join(c.Dir, fileName) }

func (c *Cache) load() error {
	f, err := os.Open(c.path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	return nil
}

// Save writes the cache to disk if it changed.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	tmp, err := os.CreateTemp(c.Dir, fileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(c.entries); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), c.path()); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	c.dirty = false
	return nil
}

// Key identifies the outcome of running the queries with the given
// fingerprint over src.
func Key(src []byte, fingerprint string) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:]) + ":" + fingerprint
}

// Fingerprint hashes the parts that define a query set.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s;", len(p), p)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Get returns the issues stored under key.
func (c *Cache) Get(key string) ([]types.Issue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		delete(c.entries, key)
		c.dirty = true
		return nil, false
	}
	entry.LastAccessed = time.Now()
	c.entries[key] = entry
	return entry.Issues, true
}

// Set stores issues under key.
func (c *Cache) Set(key string, issues []types.Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.entries[key] = Entry{Issues: issues, CreatedAt: now, LastAccessed: now}
	c.dirty = true
}

// SetMaxAge makes entries older than d expire. Zero keeps them forever.
func (c *Cache) SetMaxAge(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxAge = d
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	c.dirty = true
}
