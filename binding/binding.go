// Package binding implements the binding state: the set of buffers,
// textures and samplers currently bound at each (set, binding number,
// array element) slot a shader layout may reference.
//
// A Binding is the array of elements bound to a single binding
// number; a Set groups the Bindings of one descriptor set; a State
// groups the Sets of an entire binding point (graphics or compute).
// Every level tracks its own dirty bit, upserted lazily — binding a
// new (set, nr) pair creates the Set/Binding on first use, and
// accessors never create entries on a miss, they report
// ErrUnboundDescriptor instead.
package binding

import (
	"errors"

	"github.com/rtcore/rtcore/storage"
)

// ErrUnboundDescriptor is returned by an accessor when the requested
// (set, binding, array element) has never been bound.
var ErrUnboundDescriptor = errors.New("binding: descriptor not bound")

// BufferBinding is a single bound buffer resource. Dynamic marks a
// binding whose offset is supplied per-draw (see desc.BufferWrite).
type BufferBinding struct {
	Buffer  *storage.BufferObject
	Dynamic bool
}

// TextureBinding is a single bound (view, sampler, usage) triple. Usage
// is the resource's current lastUsage, from which the descriptor's
// image layout is derived at flush time.
type TextureBinding struct {
	View    *storage.ImageView
	Sampler *storage.Sampler
	Usage   storage.ResourceUsage
}

// Binding is the array of elements bound to one binding number. Only
// one of its buffer/texture element slices is meaningful for a given
// Binding, according to how it was first bound; callers are expected
// to know a shader layout's descriptor kind at each binding number and
// call the matching accessor.
type Binding struct {
	buffers  []BufferBinding
	textures []TextureBinding
	dirty    bool
}

func growBuffers(s []BufferBinding, n int) []BufferBinding {
	for len(s) < n {
		s = append(s, BufferBinding{})
	}
	return s
}

func growTextures(s []TextureBinding, n int) []TextureBinding {
	for len(s) < n {
		s = append(s, TextureBinding{})
	}
	return s
}

// BindBuffer overwrites the buffer bound at arrayElement and marks the
// binding dirty, growing the element array as needed.
func (b *Binding) BindBuffer(arrayElement int, v BufferBinding) {
	b.buffers = growBuffers(b.buffers, arrayElement+1)
	b.buffers[arrayElement] = v
	b.dirty = true
}

// BindTexture overwrites the full (view, sampler, usage) triple bound
// at arrayElement and marks the binding dirty.
func (b *Binding) BindTexture(arrayElement int, v TextureBinding) {
	b.textures = growTextures(b.textures, arrayElement+1)
	b.textures[arrayElement] = v
	b.dirty = true
}

// BindTextureView overwrites only the view and usage bound at
// arrayElement, preserving whatever sampler was bound there before —
// the behavior a texture rebind needs when only its image content
// changed but its sampling parameters did not.
func (b *Binding) BindTextureView(arrayElement int, view *storage.ImageView, usage storage.ResourceUsage) {
	b.textures = growTextures(b.textures, arrayElement+1)
	b.textures[arrayElement].View = view
	b.textures[arrayElement].Usage = usage
	b.dirty = true
}

// Buffer returns the buffer bound at arrayElement.
func (b *Binding) Buffer(arrayElement int) (BufferBinding, error) {
	if arrayElement >= len(b.buffers) {
		return BufferBinding{}, ErrUnboundDescriptor
	}
	v := b.buffers[arrayElement]
	if v.Buffer == nil {
		return BufferBinding{}, ErrUnboundDescriptor
	}
	return v, nil
}

// Texture returns the texture bound at arrayElement.
func (b *Binding) Texture(arrayElement int) (TextureBinding, error) {
	if arrayElement >= len(b.textures) {
		return TextureBinding{}, ErrUnboundDescriptor
	}
	v := b.textures[arrayElement]
	if v.View == nil {
		return TextureBinding{}, ErrUnboundDescriptor
	}
	return v, nil
}

// Dirty reports whether this binding number changed since the last
// clearDirty.
func (b *Binding) Dirty() bool { return b.dirty }

func (b *Binding) clearDirty() { b.dirty = false }

// Set is the binding state of a single descriptor set: one Binding per
// binding number referenced so far.
type Set struct {
	bindings map[int]*Binding
}

func newSet() *Set { return &Set{bindings: make(map[int]*Binding)} }

func (s *Set) binding(nr int) *Binding {
	b, ok := s.bindings[nr]
	if !ok {
		b = &Binding{}
		s.bindings[nr] = b
	}
	return b
}

// BindBuffer upserts the Binding at nr and binds v at arrayElement.
func (s *Set) BindBuffer(nr, arrayElement int, v BufferBinding) {
	s.binding(nr).BindBuffer(arrayElement, v)
}

// BindTexture upserts the Binding at nr and binds v at arrayElement.
func (s *Set) BindTexture(nr, arrayElement int, v TextureBinding) {
	s.binding(nr).BindTexture(arrayElement, v)
}

// BindTextureView upserts the Binding at nr and rebinds only the view
// and usage at arrayElement, preserving its existing sampler.
func (s *Set) BindTextureView(nr, arrayElement int, view *storage.ImageView, usage storage.ResourceUsage) {
	s.binding(nr).BindTextureView(arrayElement, view, usage)
}

// Buffer returns the buffer bound at (nr, arrayElement). It never
// creates a Binding entry: a miss at nr reports ErrUnboundDescriptor
// exactly as a bound-but-empty element does.
func (s *Set) Buffer(nr, arrayElement int) (BufferBinding, error) {
	b, ok := s.bindings[nr]
	if !ok {
		return BufferBinding{}, ErrUnboundDescriptor
	}
	return b.Buffer(arrayElement)
}

// Texture returns the texture bound at (nr, arrayElement).
func (s *Set) Texture(nr, arrayElement int) (TextureBinding, error) {
	b, ok := s.bindings[nr]
	if !ok {
		return TextureBinding{}, ErrUnboundDescriptor
	}
	return b.Texture(arrayElement)
}

// Dirty reports whether any binding number in the set changed since
// the last clearDirty.
func (s *Set) Dirty() bool {
	for _, b := range s.bindings {
		if b.dirty {
			return true
		}
	}
	return false
}

// DirtyNrs returns the binding numbers currently marked dirty, for a
// flush step that must rewrite only the descriptors that changed.
func (s *Set) DirtyNrs() []int {
	var nrs []int
	for nr, b := range s.bindings {
		if b.dirty {
			nrs = append(nrs, nr)
		}
	}
	return nrs
}

func (s *Set) clearDirty() {
	for _, b := range s.bindings {
		b.clearDirty()
	}
}

// State is the full binding state of a binding point (graphics or
// compute): one Set per descriptor-set index referenced so far.
type State struct {
	sets map[int]*Set
}

// NewState returns an empty State.
func NewState() *State { return &State{sets: make(map[int]*Set)} }

// Set returns the BindingSet at index n, creating it on first use.
func (st *State) Set(n int) *Set {
	s, ok := st.sets[n]
	if !ok {
		s = newSet()
		st.sets[n] = s
	}
	return s
}

// DirtySets returns the indices of every set with at least one dirty
// binding, in map iteration order, which is not stable — callers that
// need a stable order should sort the result.
func (st *State) DirtySets() []int {
	var idx []int
	for n, s := range st.sets {
		if s.Dirty() {
			idx = append(idx, n)
		}
	}
	return idx
}

// ClearDirty clears every set's dirty bindings. Call this once the
// dirty sets' contents have been written into a native descriptor
// table.
func (st *State) ClearDirty() {
	for _, s := range st.sets {
		s.clearDirty()
	}
}
