package search

import "sync"

// fifoCache is a capacity-bounded map of string keys to embedding vectors.
// Insertion beyond capacity evicts the oldest-inserted key first; there is
// no recency tracking. Never authoritative, only a scan accelerator.
type fifoCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string][]float32
	order    []string
}

func newFIFOCache(capacity int) *fifoCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &fifoCache{
		capacity: capacity,
		entries:  make(map[string][]float32, capacity),
	}
}

func (c *fifoCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *fifoCache) Put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		c.entries[key] = vec
		return
	}
	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = vec
	c.order = append(c.order, key)
}

func (c *fifoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *fifoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]float32, c.capacity)
	c.order = nil
}

// Prune evicts oldest entries until the cache fits its capacity again.
func (c *fifoCache) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.entries) > c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
