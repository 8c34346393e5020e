package texture

import (
	"image"
	"sync"
)

// Resolver resolves a texture reference to a decoded image.
type Resolver interface {
	Resolve(ref string) *image.NRGBA
}

// Cache is a concurrency-safe texture cache over an Index. Batch runs share
// one cache across worker goroutines.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry // full path → load attempt
	index *Index
}

type cacheEntry struct {
	img *image.NRGBA // nil if the load failed
}

// NewCache creates a cache backed by the given index.
func NewCache(index *Index) *Cache {
	return &Cache{
		items: make(map[string]*cacheEntry),
		index: index,
	}
}

// Resolve loads and caches a texture by reference. Returns nil when the
// reference cannot be resolved or decoded.
func (c *Cache) Resolve(ref string) *image.NRGBA {
	path, ok := c.index.ResolvePath(ref)
	if !ok {
		return nil
	}

	c.mu.RLock()
	if entry, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return entry.img
	}
	c.mu.RUnlock()

	img, _ := Load(path)

	c.mu.Lock()
	if entry, exists := c.items[path]; exists {
		c.mu.Unlock()
		return entry.img
	}
	c.items[path] = &cacheEntry{img: img}
	c.mu.Unlock()

	return img
}
