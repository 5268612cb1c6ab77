package db

import (
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto"
)

const (
	TransactionCache = "transactions"
	AccountCache     = "accounts"
	DashboardCache   = "dashboard"
)

// Cache is a ristretto read cache for per-user list queries. Keys are tracked
// per namespace so a whole namespace, or one user's slice of it, can be
// dropped after a write. A nil *Cache is a valid no-op cache.
type Cache struct {
	store *ristretto.Cache

	mu   sync.RWMutex
	keys map[string]map[string]struct{}
}

func NewCache(maxCost int64) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost * 10, // number of keys to track frequency of
		MaxCost:     maxCost,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}
	return &Cache{
		store: store,
		keys: map[string]map[string]struct{}{
			TransactionCache: {},
			AccountCache:     {},
			DashboardCache:   {},
		},
	}, nil
}

// Key builds a cache key scoped to one user inside a namespace.
func Key(namespace, userID string, parts ...string) string {
	return namespace + ":" + userID + ":" + strings.Join(parts, "|")
}

func (c *Cache) Get(key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	return c.store.Get(key)
}

func (c *Cache) Set(namespace, key string, value interface{}) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if _, ok := c.keys[namespace]; !ok {
		c.keys[namespace] = map[string]struct{}{}
	}
	c.keys[namespace][key] = struct{}{}
	c.mu.Unlock()
	c.store.Set(key, value, 1)
	c.store.Wait()
}

func (c *Cache) Del(namespace, key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.keys[namespace], key)
	c.mu.Unlock()
	c.store.Del(key)
}

// ClearUser drops every key of userID in the given namespaces.
func (c *Cache) ClearUser(userID string, namespaces ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ns := range namespaces {
		prefix := ns + ":" + userID + ":"
		for key := range c.keys[ns] {
			if strings.HasPrefix(key, prefix) {
				c.store.Del(key)
				delete(c.keys[ns], key)
			}
		}
	}
}

// Clear drops a whole namespace. It reports false for unknown namespaces.
func (c *Cache) Clear(namespace string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, ok := c.keys[namespace]
	if !ok {
		return false
	}
	for key := range keys {
		c.store.Del(key)
	}
	c.keys[namespace] = map[string]struct{}{}
	return true
}

func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.store.Close()
}
