package resolver

import (
	"context"
	"sync"
	"time"
)

// Cache stores raw fetched response bodies, keyed by request URL, so
// repeated resolutions within a short window don't refetch the same
// Entity Configuration or Subordinate Statement over the network. It
// never shortcuts signature verification: cachingFetcher only ever
// returns bytes that fetchAndVerifyConfig / fetchAndVerifySubordinate
// still verify in full, so caching cannot smuggle a forged statement
// past the resolver. See SPEC_FULL.md §3.10; pkg/resolver/rediscache
// provides a shared-process implementation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type memoryCacheEntry struct {
	value   []byte
	expires time.Time
}

// memoryCache is a process-local, mutex-guarded Cache. It is the
// default when no Cache is configured.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
}

// NewMemoryCache constructs an in-process Cache with no external
// dependency, suitable for a single resolver instance.
func NewMemoryCache() Cache {
	return &memoryCache{entries: make(map[string]memoryCacheEntry)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryCacheEntry{value: value, expires: time.Now().Add(ttl)}
}

// cachingFetcher decorates a Fetcher with a Cache, read-through on Get.
type cachingFetcher struct {
	next Fetcher
	c    Cache
	ttl  time.Duration
}

// WithCache wraps fetcher so that successful fetches are cached for
// ttl; a ttl of zero disables the wrapper entirely (next is returned
// unchanged).
func WithCache(fetcher Fetcher, c Cache, ttl time.Duration) Fetcher {
	if c == nil || ttl <= 0 {
		return fetcher
	}
	return &cachingFetcher{next: fetcher, c: c, ttl: ttl}
}

func (f *cachingFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if body, ok := f.c.Get(ctx, rawURL); ok {
		return body, nil
	}
	body, err := f.next.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	f.c.Set(ctx, rawURL, body, f.ttl)
	return body, nil
}
