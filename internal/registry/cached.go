package registry

import (
	"context"
	"fmt"

	"github.com/maypok86/otter"
)

// CachedClient memoises successful lookups of another client in memory.
// Errors are never cached.
type CachedClient struct {
	next  Client
	cache otter.Cache[string, []Package]
}

// NewCachedClient wraps next with an in-memory cache holding up to capacity names.
func NewCachedClient(next Client, capacity int) (*CachedClient, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}

	cache, err := otter.MustBuilder[string, []Package](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup cache: %w", err)
	}

	return &CachedClient{
		next:  next,
		cache: cache,
	}, nil
}

// Search answers from the cache when possible.
func (c *CachedClient) Search(ctx context.Context, name string) ([]Package, error) {
	if matches, ok := c.cache.Get(name); ok {
		return matches, nil
	}

	matches, err := c.next.Search(ctx, name)
	if err != nil {
		return nil, err
	}

	c.cache.Set(name, matches)
	return matches, nil
}

// Close releases the cache's background resources.
func (c *CachedClient) Close() {
	c.cache.Close()
}
