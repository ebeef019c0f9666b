package types

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// StringCache interns categorical values. A cache is scoped to a query or a
// session and is safe for concurrent use.
//
// Identifiers are assigned in insertion order and never reused, so the
// dictionary snapshot taken at any point is a prefix of every later
// snapshot. Categorical arrays encoded against the same cache can therefore
// be combined by keeping the longest dictionary.
type StringCache struct {
	mu     sync.RWMutex
	ids    map[string]uint32
	values []string
}

// NewStringCache returns an empty cache.
func NewStringCache() *StringCache {
	return &StringCache{ids: make(map[string]uint32)}
}

// Intern returns the identifier of s, assigning a new one if needed.
func (c *StringCache) Intern(s string) uint32 {
	c.mu.RLock()
	id, ok := c.ids[s]
	c.mu.RUnlock()
	if ok {
		return id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.ids[s]; ok {
		return id
	}
	id = uint32(len(c.values))
	c.ids[s] = id
	c.values = append(c.values, s)
	return id
}

// Lookup returns the string for id.
func (c *StringCache) Lookup(id uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.values) {
		return "", false
	}
	return c.values[id], true
}

// Len returns the number of interned strings.
func (c *StringCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Dictionary returns a snapshot of the interned strings as an Arrow string
// array whose positions equal the identifiers.
func (c *StringCache) Dictionary(mem memory.Allocator) arrow.Array {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.AppendValues(c.values, nil)
	return b.NewArray()
}
