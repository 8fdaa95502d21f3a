package bridge

import (
	"sort"
	"sync"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
)

const cacheKeyPrefix = "result:"

// CacheKey derives the result cache key for a command identifier.
func CacheKey(command string) string {
	return cacheKeyPrefix + command
}

// Cache holds the last event seen per key. Writes overwrite; nothing expires.
type Cache struct {
	mu      sync.Mutex
	entries map[string]protocol.Event
}

func NewCache() *Cache {
	return &Cache{entries: map[string]protocol.Event{}}
}

func (c *Cache) Get(key string) (protocol.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.entries[key]
	return ev, ok
}

func (c *Cache) Set(key string, ev protocol.Event) {
	c.mu.Lock()
	c.entries[key] = ev
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the cached keys, sorted.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
