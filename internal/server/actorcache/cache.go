// Package actorcache is the per-process cache of resolved remote actor
// documents, bounded by size and entry age.
package actorcache

import (
	"time"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultTTL  = time.Hour
	DefaultSize = 1024
)

// Cache maps actor URLs to documents. It is safe for concurrent use.
type Cache struct {
	lru *expirable.LRU[string, *activitypub.Actor]
}

// New builds a cache. Non-positive size or ttl fall back to the defaults.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{lru: expirable.NewLRU[string, *activitypub.Actor](size, nil, ttl)}
}

func (c *Cache) Get(actorURL string) (*activitypub.Actor, bool) {
	return c.lru.Get(actorURL)
}

func (c *Cache) Add(actorURL string, a *activitypub.Actor) {
	c.lru.Add(actorURL, a)
}

func (c *Cache) Remove(actorURL string) {
	c.lru.Remove(actorURL)
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}
