package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"semsearch/internal/port"
)

// QueryCache is a small LRU of text embeddings with a TTL.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	vector    []float32
	timestamp time.Time
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(text)
	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return copyVector(entry.vector), true
}

func (c *QueryCache) Put(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(text)
	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{vector: copyVector(vector), timestamp: c.now()}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{vector: copyVector(vector), timestamp: c.now()}
	c.order = append(c.order, key)
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// Cached serves repeated texts from a QueryCache. Embeddings are
// deterministic for a frozen model, so entries never need invalidation.
type Cached struct {
	embedder port.Embedder
	cache    *QueryCache
}

var _ port.Embedder = (*Cached)(nil)

func NewCached(embedder port.Embedder, cache *QueryCache) *Cached {
	return &Cached{
		embedder: embedder,
		cache:    cache,
	}
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, hit := c.cache.Get(text); hit {
		return vec, nil
	}

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Put(text, vec)
	return vec, nil
}

func (c *Cached) Dimension() int {
	return c.embedder.Dimension()
}

func (c *Cached) ModelName() string {
	return c.embedder.ModelName()
}
