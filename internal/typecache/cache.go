// Package typecache holds the process-wide lookup tables for parsed type
// expressions and converter resolution. Entries are created lazily and only
// ever dropped all at once by Invalidate, which the application calls when
// the host reloads.
package typecache

import (
	"sync"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

type typeEntry struct {
	ty  cty.Type
	err error
}

type converterEntry struct {
	spec graph.NodeSpec
	ok   bool
}

// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	types      map[string]typeEntry
	converters map[string]converterEntry
	generation uint64
}

var defaultCache = New()

// Default returns the process-wide cache.
func Default() *Cache {
	return defaultCache
}

// New returns an empty cache. Tests use it for isolation.
func New() *Cache {
	return &Cache{
		types:      make(map[string]typeEntry),
		converters: make(map[string]converterEntry),
	}
}

// Type parses a type expression, memoizing the result and any error.
func (c *Cache) Type(src string) (cty.Type, error) {
	c.mu.RLock()
	e, ok := c.types[src]
	c.mu.RUnlock()
	if ok {
		return e.ty, e.err
	}

	ty, err := types.Parse(src)
	c.mu.Lock()
	c.types[src] = typeEntry{ty: ty, err: err}
	c.mu.Unlock()
	return ty, err
}

// Converter returns the memoized converter for a type pair, calling resolve
// on a miss. cty.Type is not always comparable, so pairs are keyed by their
// text form.
func (c *Cache) Converter(from, to cty.Type, resolve func() (graph.NodeSpec, bool)) (graph.NodeSpec, bool) {
	key := types.String(from) + "->" + types.String(to)
	c.mu.RLock()
	e, ok := c.converters[key]
	c.mu.RUnlock()
	if ok {
		return e.spec, e.ok
	}

	spec, found := resolve()
	c.mu.Lock()
	c.converters[key] = converterEntry{spec: spec, ok: found}
	c.mu.Unlock()
	return spec, found
}

// Invalidate clears every table.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = make(map[string]typeEntry)
	c.converters = make(map[string]converterEntry)
	c.generation++
}

// Generation counts invalidations.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Len returns the number of cached entries across tables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types) + len(c.converters)
}
