// Package cache provides the bounded TTL result cache used by the search
// orchestrator.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Aman-CERP/amansearch/internal/search"
)

// Defaults for the result cache.
const (
	DefaultSize = 256
	DefaultTTL  = 10 * time.Minute
)

// ResultCache is an LRU of search outputs whose entries expire after a TTL.
// It is safe for concurrent use.
type ResultCache struct {
	lru    *expirable.LRU[string, *search.SearchOutput]
	hits   atomic.Int64
	misses atomic.Int64
}

// Ensure ResultCache implements search.ResultCache.
var _ search.ResultCache = (*ResultCache)(nil)

// New creates a cache holding at most size entries for ttl each.
// Non-positive arguments use the defaults.
func New(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, *search.SearchOutput](size, nil, ttl),
	}
}

// Get returns the cached output for key.
func (c *ResultCache) Get(key string) (*search.SearchOutput, bool) {
	out, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return out, true
}

// Set stores out under key, evicting the least recently used entry when full.
func (c *ResultCache) Set(key string, out *search.SearchOutput) {
	c.lru.Add(key, out)
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *ResultCache) Purge() {
	c.lru.Purge()
}

// Stats reports hit and miss counts since creation.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
