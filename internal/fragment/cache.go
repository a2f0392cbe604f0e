package fragment

import (
	"context"
	"sync"

	"github.com/starford/lintel/internal/checksum"
)

type cacheEntry struct {
	body string
	sum  string
}

// Cache memoizes fragment bodies of another Fetcher. Failed fetches are not
// cached. Entries live until the next Refresh.
type Cache struct {
	next Fetcher

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache wraps next.
func NewCache(next Fetcher) *Cache {
	return &Cache{next: next, entries: make(map[string]cacheEntry)}
}

// Fetch returns the cached body or loads it from the wrapped fetcher.
func (c *Cache) Fetch(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return e.body, nil
	}

	body, err := c.next.Fetch(ctx, name)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.entries[name] = cacheEntry{body: body, sum: checksum.Sum([]byte(body))}
	c.mu.Unlock()
	return body, nil
}

// Refresh reloads name and reports whether its content differs from the
// cached copy. A fetch error drops the entry; changed is then true if an
// entry existed.
func (c *Cache) Refresh(ctx context.Context, name string) (bool, error) {
	body, err := c.next.Fetch(ctx, name)

	c.mu.Lock()
	defer c.mu.Unlock()
	old, had := c.entries[name]
	if err != nil {
		delete(c.entries, name)
		return had, err
	}
	sum := checksum.Sum([]byte(body))
	c.entries[name] = cacheEntry{body: body, sum: sum}
	return !had || old.sum != sum, nil
}

// Checksum returns the checksum of the cached copy of name.
func (c *Cache) Checksum(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e.sum, ok
}
