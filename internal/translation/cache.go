package translation

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Cache stores translations keyed by backend, target language and source
// text.
type Cache interface {
	Get(ctx context.Context, backend, target, text string) (string, bool, error)
	Put(ctx context.Context, backend, target, text, translation string) error
	Close() error
}

type cacheKey struct {
	backend, target, text string
}

// MemoryCache stores translations in memory for the lifetime of one run
type MemoryCache struct {
	mu           sync.RWMutex
	translations map[cacheKey]string
}

// NewMemoryCache creates a new translation cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		translations: make(map[cacheKey]string),
	}
}

// Get retrieves a translation from the cache
func (c *MemoryCache) Get(ctx context.Context, backend, target, text string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	translation, ok := c.translations[cacheKey{backend, target, text}]
	return translation, ok, nil
}

// Put adds a translation to the cache
func (c *MemoryCache) Put(ctx context.Context, backend, target, text, translation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.translations[cacheKey{backend, target, text}] = translation
	return nil
}

// Len returns the number of cached translations
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.translations)
}

// Close is a no-op
func (c *MemoryCache) Close() error { return nil }

// Cached answers repeated texts from a cache instead of the backend
type Cached struct {
	inner  Translator
	cache  Cache
	target string
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCached wraps inner with cache. target is part of the cache key so one
// cache can serve several target languages.
func NewCached(inner Translator, cache Cache, target string, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cached{
		inner:  inner,
		cache:  cache,
		target: target,
		logger: logger,
	}
}

// Translate returns the cached translation or asks the wrapped translator.
// Cache errors are logged and otherwise ignored.
func (c *Cached) Translate(ctx context.Context, text string) (string, error) {
	backend := c.inner.Name()

	translation, ok, err := c.cache.Get(ctx, backend, c.target, text)
	if err != nil {
		c.logger.Warn("translation cache lookup failed", "error", err)
	}
	if ok {
		c.hits.Add(1)
		return translation, nil
	}
	c.misses.Add(1)

	translation, err = c.inner.Translate(ctx, text)
	if err != nil {
		return "", err
	}
	if err := c.cache.Put(ctx, backend, c.target, text, translation); err != nil {
		c.logger.Warn("translation cache store failed", "error", err)
	}
	return translation, nil
}

// Name returns the wrapped provider name
func (c *Cached) Name() string { return c.inner.Name() }

// Hits returns the number of translations answered from the cache
func (c *Cached) Hits() int64 { return c.hits.Load() }

// Misses returns the number of translations sent to the backend
func (c *Cached) Misses() int64 { return c.misses.Load() }
