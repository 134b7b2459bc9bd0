package summarizer

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingSummarizer memoizes successful summaries in an LRU cache. Failures
// are never cached.
type CachingSummarizer struct {
	next  Summarizer
	cache *lru.Cache[string, Summary]
}

// NewCachingSummarizer wraps next with an LRU cache of size entries. A
// non-positive size returns next unchanged.
func NewCachingSummarizer(next Summarizer, size int) Summarizer {
	if size <= 0 {
		return next
	}
	cache, err := lru.New[string, Summary](size)
	if err != nil {
		return next
	}
	return &CachingSummarizer{
		next:  next,
		cache: cache,
	}
}

func (c *CachingSummarizer) Summarize(ctx context.Context, req Request) (*Summary, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	req = withDefaults(req)

	key := ComputeHash(c.next.Provider(), c.next.Model(), req)
	if cached, ok := c.cache.Get(key); ok {
		// Summary is a value type, so the caller gets its own copy
		cached.Cached = true
		return &cached, nil
	}

	summary, err := c.next.Summarize(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, *summary)
	return summary, nil
}

func (c *CachingSummarizer) Provider() string {
	return c.next.Provider()
}

func (c *CachingSummarizer) Model() string {
	return c.next.Model()
}

// Size returns the current cache size
func (c *CachingSummarizer) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *CachingSummarizer) Clear() {
	c.cache.Purge()
}

func (c *CachingSummarizer) Close() error {
	c.cache.Purge()
	return c.next.Close()
}
