// Package cache provides a thread-safe generic cache and the process-wide
// caches for rendered descriptions and syntax CSS.
package cache

import "sync"

type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

// Compute stores and returns fn(current, ok) for key under the write lock.
func (c *Cache[K, V]) Compute(key K, fn func(current V, ok bool) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.items[key]
	val := fn(current, ok)
	c.items[key] = val
	return val
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeleteFunc removes every entry for which del returns true and reports how
// many were removed.
func (c *Cache[K, V]) DeleteFunc(del func(K, V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, v := range c.items {
		if del(k, v) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
}

var renderedMarkdownCache = NewCache[string, []byte]()

func GetRenderedMarkdown(contentHash, syntaxTheme string) ([]byte, bool) {
	return renderedMarkdownCache.Get(contentHash + ":" + syntaxTheme)
}

func SetRenderedMarkdown(contentHash, syntaxTheme string, html []byte) {
	renderedMarkdownCache.Set(contentHash+":"+syntaxTheme, html)
}

func ClearRenderedMarkdownCache() {
	renderedMarkdownCache.Clear()
}
