// Package rescache implements the resource cache: a map from
// (category, structural hash) to a refcounted native handle, shared
// by every caller that asks for the same pipeline, pipeline layout,
// render pass or framebuffer configuration.
//
// The cache never evicts on its own. Clear drops every entry it
// currently knows about, but a handle already acquired by a caller
// (for example one recorded into a live command buffer) stays valid
// until that caller releases it: destruction happens when the last
// reference to an entry goes away, not when it leaves the cache's
// map.
package rescache

import (
	"sync"

	"github.com/rtcore/rtcore/driver"
)

// refEntry is one cached native handle plus its live reference count.
type refEntry[V driver.Destroyer] struct {
	mu      sync.Mutex
	handle  V
	hash    uint64
	refs    int
	evicted bool
}

func (e *refEntry[V]) acquire() {
	e.mu.Lock()
	e.refs++
	e.mu.Unlock()
}

func (e *refEntry[V]) release() {
	e.mu.Lock()
	e.refs--
	destroy := e.refs <= 0 && e.evicted
	e.mu.Unlock()
	if destroy {
		e.handle.Destroy()
	}
}

func (e *refEntry[V]) evict() {
	e.mu.Lock()
	e.evicted = true
	destroy := e.refs <= 0
	e.mu.Unlock()
	if destroy {
		e.handle.Destroy()
	}
}

// Handle is a live reference to a cached native handle. Release must
// be called exactly once per Handle obtained from the cache.
type Handle[V driver.Destroyer] struct {
	entry *refEntry[V]
}

// Native returns the underlying native handle.
func (h Handle[V]) Native() V { return h.entry.handle }

// Hash returns the structural hash this handle was cached under, for
// composing into a dependent cache key (a Framebuffer key folds in
// its RenderPass's Hash, for instance).
func (h Handle[V]) Hash() uint64 { return h.entry.hash }

// Release returns the handle to the cache. It does not destroy the
// native object while other callers, or the cache itself (if not yet
// cleared), still hold a reference to the same entry.
func (h Handle[V]) Release() { h.entry.release() }

// category is one of the cache's four handle kinds, keyed by
// structural hash.
type category[V driver.Destroyer] struct {
	mu      sync.Mutex
	entries map[uint64]*refEntry[V]
}

func newCategory[V driver.Destroyer]() *category[V] {
	return &category[V]{entries: make(map[uint64]*refEntry[V])}
}

func (c *category[V]) getOrCreate(hash uint64, create func() (V, error)) (Handle[V], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[hash]; ok {
		e.acquire()
		return Handle[V]{e}, nil
	}
	v, err := create()
	if err != nil {
		var zero Handle[V]
		return zero, err
	}
	e := &refEntry[V]{handle: v, hash: hash, refs: 1}
	c.entries[hash] = e
	return Handle[V]{e}, nil
}

func (c *category[V]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for h, e := range c.entries {
		e.evict()
		delete(c.entries, h)
	}
}

// Cache is the resource cache (C6): a content-hashed factory cache
// for pipeline layouts (DescTables), descriptor-set layouts (left to
// the desc package's own per-layout DescHeap slabs, see DESIGN.md),
// render passes, framebuffers and pipelines.
type Cache struct {
	gpu driver.GPU

	pipelines    *category[driver.Pipeline]
	descTables   *category[driver.DescTable]
	renderPasses *category[driver.RenderPass]
	framebuffers *category[driver.Framebuf]
}

// New creates a Cache that allocates native handles from gpu.
func New(gpu driver.GPU) *Cache {
	return &Cache{
		gpu:          gpu,
		pipelines:    newCategory[driver.Pipeline](),
		descTables:   newCategory[driver.DescTable](),
		renderPasses: newCategory[driver.RenderPass](),
		framebuffers: newCategory[driver.Framebuf](),
	}
}

// Clear drops every cached handle. Handles already acquired and not
// yet released keep their native object alive until they are.
func (c *Cache) Clear() {
	c.pipelines.clear()
	c.descTables.clear()
	c.renderPasses.clear()
	c.framebuffers.clear()
}
