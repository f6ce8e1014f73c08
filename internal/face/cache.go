package face

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Meta describes one embedding extraction.
type Meta struct {
	FaceCount int       `json:"faces"`
	Box       []float64 `json:"bbox,omitempty"`
	Score     float64   `json:"det_score,omitempty"`
	Cached    bool      `json:"cached"`
}

// Entry is one cached embedding with its detection metadata.
type Entry struct {
	Embedding Vector
	Meta      Meta
}

// Stats describes the cache contents.
type Stats struct {
	Enabled        bool  `json:"enabled"`
	EntryCount     int   `json:"entries"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
}

// Cache is a content-addressed embedding store. Implementations must support
// concurrent reads and writes; Clear removes everything as a single logical
// operation.
type Cache interface {
	Get(key string) (*Entry, error)
	Set(key string, e Entry) error
	Stats() (Stats, error)
	Clear() (int, error)
	Close() error
}

// CacheKey derives the cache key from the raw image content and the model
// identity, so the same image under different models never collides.
func CacheKey(image []byte, model string) string {
	h := sha256.New()
	h.Write(image)
	h.Write([]byte(model))
	return hex.EncodeToString(h.Sum(nil))
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryCache returns the default in-process cache.
func NewMemoryCache() Cache {
	return &memoryCache{entries: make(map[string]Entry)}
}

func (c *memoryCache) Get(key string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	// Copy out so callers can't mutate the stored vector.
	out := Entry{Embedding: e.Embedding.Clone(), Meta: e.Meta}
	return &out, nil
}

func (c *memoryCache) Set(key string, e Entry) error {
	stored := Entry{Embedding: e.Embedding.Clone(), Meta: e.Meta}
	c.mu.Lock()
	c.entries[key] = stored
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Stats() (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var size int64
	for _, e := range c.entries {
		size += int64(len(e.Embedding) * 4)
	}
	return Stats{Enabled: true, EntryCount: len(c.entries), TotalSizeBytes: size}, nil
}

func (c *memoryCache) Clear() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]Entry)
	return n, nil
}

func (c *memoryCache) Close() error { return nil }
