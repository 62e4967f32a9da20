// Package search evaluates ranked queries against a built index: cached
// posting-list retrieval, sparse TF-IDF matrix construction, and the
// cosine/mean blended ranking.
package search

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cmorrow/quarry/internal/store"
)

// DefaultCacheCapacity bounds the posting-list cache for one search
// session.
const DefaultCacheCapacity = 1000

// Cache is a bounded term-to-posting-list cache in front of shard scans.
// Eviction is LRU. Negative lookups are not cached, so an absent term costs
// a shard scan every time it is queried.
type Cache struct {
	st  *store.Store
	lru *lru.Cache[string, []store.Posting]
}

// NewCache returns a Cache over st holding at most capacity posting lists.
// A non-positive capacity selects the default.
func NewCache(st *store.Store, capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	l, err := lru.New[string, []store.Posting](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{st: st, lru: l}, nil
}

// Retrieve returns the posting list for term, consulting the cache before
// scanning the term's shard. An unknown term yields an empty list.
func (c *Cache) Retrieve(term string) ([]store.Posting, error) {
	if postings, ok := c.lru.Get(term); ok {
		return postings, nil
	}

	postings, err := c.st.LookupTerm(term)
	if err != nil {
		return nil, err
	}
	if len(postings) > 0 {
		c.lru.Add(term, postings)
	}
	return postings, nil
}

// Len returns the number of cached posting lists.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Contains reports whether term is currently cached, without updating
// recency.
func (c *Cache) Contains(term string) bool {
	return c.lru.Contains(term)
}
