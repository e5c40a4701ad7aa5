package store

import "sync"

// nodeKey identifies a group row: its parent row (0 at the top) and name.
type nodeKey struct {
	parent int64
	name   string
}

// idCache remembers the row ids of group nodes that are known to be
// committed.
type idCache struct {
	mu  sync.RWMutex
	ids map[nodeKey]int64
}

func newIDCache() *idCache {
	return &idCache{ids: make(map[nodeKey]int64)}
}

func (c *idCache) get(k nodeKey) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[k]
	return id, ok
}

// merge adds ids learned by a committed transaction.
func (c *idCache) merge(ids map[nodeKey]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, id := range ids {
		c.ids[k] = id
	}
}

func (c *idCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
