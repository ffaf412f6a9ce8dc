// Package pipelinecache implements an optional, in-process TTL cache the
// CLI driver may consult before running the pipeline. The core Analyze
// function never uses this package; it remains stateless between calls
// (spec.md §1, SPEC_FULL §4).
package pipelinecache

import (
	"sync"
	"time"

	"perspectivelens/internal/core"
)

type entry struct {
	artifact  *core.AnalysisArtifact
	expiresAt time.Time
}

// Cache is a hand-rolled, mutex-guarded TTL map keyed on a string built by
// Key, mirroring the teacher's CacheManager shape without any backing
// store.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

// New returns a Cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[string]entry)}
}

// Get returns the cached artifact for key, if present and unexpired.
func (c *Cache) Get(key string) (*core.AnalysisArtifact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.artifact, true
}

// Put stores artifact under key with the cache's configured TTL.
func (c *Cache) Put(key string, artifact *core.AnalysisArtifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{artifact: artifact, expiresAt: time.Now().Add(c.ttl)}
}

// Clear removes all cached entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Key builds the cache key from a lookup text (the CLI passes the input
// article's URL) plus an ordered list of country codes, so the same text
// under different country lists maps to different keys. Per-country
// counts are not part of the key.
func Key(searchText string, countries []string) string {
	key := searchText
	for _, c := range countries {
		key += "|" + c
	}
	return key
}
