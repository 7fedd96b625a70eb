package caching

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one cached fetch.
type Entry struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url"`
	ContentType string    `json:"content_type"`
	FetchedAt   time.Time `json:"fetched_at"`
	Body        []byte    `json:"body"`
}

// Cache is a file-per-URL cache with a TTL. File names are the SHA-256 of
// the URL.
type Cache struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewCache creates the cache directory if needed.
func NewCache(path string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		path: path,
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

func (c *Cache) key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x.json", hash)
}

// Get returns the entry for url when present and younger than the TTL.
func (c *Cache) Get(url string) (*Entry, bool) {
	data, err := os.ReadFile(filepath.Join(c.path, c.key(url)))
	if err != nil {
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	// guards against hash collisions and hand-edited files
	if e.URL != url {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.FetchedAt) > c.ttl {
		return nil, false
	}
	return &e, true
}

// Set stores e under e.URL, stamping FetchedAt when unset.
func (c *Cache) Set(e Entry) error {
	if e.FetchedAt.IsZero() {
		e.FetchedAt = c.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	filePath := filepath.Join(c.path, c.key(e.URL))
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// Delete drops the entry for url. A missing entry is not an error.
func (c *Cache) Delete(url string) error {
	err := os.Remove(filepath.Join(c.path, c.key(url)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}
