package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/cortex-facts/internal/resolver"
)

// ResultCache keeps Pass A output keyed by a hash of language, path and
// content. Cached FileFacts are shared and must be treated as read-only;
// the Linker clones what it rewrites.
type ResultCache struct {
	cache otter.Cache[string, *resolver.FileFacts]
}

// NewResultCache creates a cache holding up to size entries. A size of zero
// or less returns a nil cache, which never hits.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := otter.MustBuilder[string, *resolver.FileFacts](size).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build parse cache: %w", err)
	}
	return &ResultCache{cache: cache}, nil
}

// CacheKey identifies one input triple.
func CacheKey(f SourceFile) string {
	h := sha256.New()
	h.Write([]byte(f.Language))
	h.Write([]byte{0})
	h.Write([]byte(f.Path))
	h.Write([]byte{0})
	h.Write(f.Content)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached Pass A output for f.
func (c *ResultCache) Get(f SourceFile) (*resolver.FileFacts, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(CacheKey(f))
}

// Put stores Pass A output for f.
func (c *ResultCache) Put(f SourceFile, ff *resolver.FileFacts) {
	if c == nil || ff == nil {
		return
	}
	c.cache.Set(CacheKey(f), ff)
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Size()
}

// HitRatio returns the fraction of lookups that hit.
func (c *ResultCache) HitRatio() float64 {
	if c == nil {
		return 0
	}
	return c.cache.Stats().Ratio()
}

// Close releases the cache.
func (c *ResultCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
