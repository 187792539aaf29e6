package embed

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/ristretto"
)

// DefaultCacheSize is the number of vectors kept by NewCached when size
// is not positive.
const DefaultCacheSize = 10_000

// Cached memoises another Embedder in a bounded ristretto cache. Because
// embedders are deterministic, a hit returns exactly what the wrapped
// embedder would have returned.
type Cached struct {
	next  Embedder
	cache *ristretto.Cache
}

var _ Embedder = (*Cached)(nil)

// NewCached wraps next with a cache holding up to size vectors.
func NewCached(next Embedder, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(size) * 10,
		MaxCost:     int64(size),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: creating cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

// Embed implements Embedder.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.next.Model() + "\x00" + text
	if v, ok := c.cache.Get(key); ok {
		if vec, ok := v.([]float32); ok {
			return slices.Clone(vec), nil
		}
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, slices.Clone(vec), 1)
	return vec, nil
}

// Dimensions implements Embedder.
func (c *Cached) Dimensions() int { return c.next.Dimensions() }

// Model implements Embedder.
func (c *Cached) Model() string { return c.next.Model() }

// Close releases the cache's background goroutines.
func (c *Cached) Close() {
	c.cache.Close()
}
