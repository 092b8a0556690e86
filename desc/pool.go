package desc

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/internal/bitvec"
)

const prefix = "desc: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// ErrBudgetExceeded is returned when satisfying a request would grow
// a pool past the Budget it was created with.
var ErrBudgetExceeded = newErr("descriptor budget exceeded")

// Budget bounds how many descriptors of each type, and how many total
// descriptor-set copies across every layout, a Pool may allocate.
// Counts maps a driver.DescType to the maximum number of descriptors
// of that type the pool may hand out in total, summed across every
// layout and every copy of every layout.
type Budget struct {
	Counts map[driver.DescType]int
	Total  int
}

func (b Budget) countOf(t driver.DescType) int {
	if b.Counts == nil {
		return 0
	}
	return b.Counts[t]
}

// BufferWrite describes a write of one or more buffer descriptors
// into a set, starting at array element Start of binding Nr. Dynamic
// marks bindings whose offset is supplied per-draw rather than baked
// into the descriptor (e.g. a uniform buffer bound at a variable
// frame offset); DynamicOffsets then has len(Buffers) entries.
type BufferWrite struct {
	Nr             int
	Start          int
	Buffers        []driver.Buffer
	Offsets        []int64
	Sizes          []int64
	Dynamic        bool
	DynamicOffsets []int64
}

// ImageWrite describes a write of one or more image-view descriptors.
type ImageWrite struct {
	Nr     int
	Start  int
	Views  []driver.ImageView
}

// SamplerWrite describes a write of one or more sampler descriptors.
type SamplerWrite struct {
	Nr       int
	Start    int
	Samplers []driver.Sampler
}

// SetWrites carries every descriptor write requestSet must apply to a
// freshly acquired set copy, grouped by descriptor kind. Bindings are
// applied in the order they appear here; DynamicOffsets across all
// Buffers entries marked Dynamic are concatenated in that same order
// to produce the set's overall dynamic-offset list, matching the
// binding iteration order of the layout.
type SetWrites struct {
	Buffers  []BufferWrite
	Images   []ImageWrite
	Samplers []SamplerWrite
}

func (w SetWrites) empty() bool {
	return len(w.Buffers) == 0 && len(w.Images) == 0 && len(w.Samplers) == 0
}

// dynamicOffsets collects the DynamicOffsets of every Dynamic
// BufferWrite, in binding order.
func (w SetWrites) dynamicOffsets() []int64 {
	var offs []int64
	for _, b := range w.Buffers {
		if b.Dynamic {
			offs = append(offs, b.DynamicOffsets...)
		}
	}
	return offs
}

// slab is the per-layout-hash allocation unit of a Pool: one native
// DescHeap plus a bit vector tracking which of its copies are in use.
type slab struct {
	layout LayoutSet
	heap   driver.DescHeap
	used   bitvec.V[uint32]
	cap    int
}

// Pool allocates DescriptorSets on demand, grouping requests by the
// structural hash of their LayoutSet so that sets sharing a layout
// share one native DescHeap, grown geometrically as more copies are
// needed.
type Pool struct {
	gpu    driver.GPU
	budget Budget

	mu    sync.Mutex
	slabs map[uint64]*slab

	// used tracks descriptors currently allocated, by type, against
	// budget.Counts; total tracks the sum of all slab capacities
	// against budget.Total.
	used  map[driver.DescType]int
	total int
}

// NewPool creates a Pool that allocates descriptor heaps from gpu,
// bounded by budget.
func NewPool(gpu driver.GPU, budget Budget) *Pool {
	return &Pool{
		gpu:    gpu,
		budget: budget,
		slabs:  make(map[uint64]*slab),
		used:   make(map[driver.DescType]int),
	}
}

// Set is a single copy of a descriptor set acquired from a Pool. Its
// destructor, Destroy, returns the copy to the pool's free list
// rather than destroying the underlying native heap.
type Set struct {
	pool   *Pool
	slab   *slab
	copy   int
	dynOff []int64
}

// Heap returns the native DescHeap this set's copy belongs to, and
// the copy index to pass to driver bind calls.
func (s *Set) Heap() (driver.DescHeap, int) { return s.slab.heap, s.copy }

// DynamicOffsets returns the set's dynamic buffer offsets, in binding
// iteration order, for use with CmdBuffer.SetDescTableGraph/Comp's
// companion dynamic-offset arguments.
func (s *Set) DynamicOffsets() []int64 { return s.dynOff }

// Destroy returns the set's copy to its pool; it does not release the
// underlying native heap, since other live sets may share it.
func (s *Set) Destroy() {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	s.slab.used.Unset(s.copy)
}

// RequestSet acquires a set copy for layout, updates it from writes,
// and returns it. The first request for a given layout hash registers
// a new slab; subsequent requests reuse it, growing its native heap
// as needed.
func (p *Pool) RequestSet(layout LayoutSet, writes SetWrites) (*Set, error) {
	if writes.empty() {
		log.Printf(prefix + "RequestSet: empty binding set")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	h := layout.Hash()
	sl, ok := p.slabs[h]
	if !ok {
		heap, err := p.gpu.NewDescHeap(layout.Descriptors)
		if err != nil {
			return nil, fmt.Errorf(prefix+"RequestSet: %w", err)
		}
		sl = &slab{layout: layout, heap: heap}
		p.slabs[h] = sl
	}

	idx, ok := sl.used.Search()
	if !ok {
		if err := p.grow(sl); err != nil {
			return nil, err
		}
		idx, ok = sl.used.Search()
		if !ok {
			return nil, ErrBudgetExceeded
		}
	}
	sl.used.Set(idx)

	for _, b := range writes.Buffers {
		sl.heap.SetBuffer(idx, b.Nr, b.Start, b.Buffers, b.Offsets, b.Sizes)
	}
	for _, im := range writes.Images {
		sl.heap.SetImage(idx, im.Nr, im.Start, im.Views)
	}
	for _, sm := range writes.Samplers {
		sl.heap.SetSampler(idx, sm.Nr, sm.Start, sm.Samplers)
	}

	return &Set{pool: p, slab: sl, copy: idx, dynOff: writes.dynamicOffsets()}, nil
}

// grow doubles sl's native heap capacity (starting at 1), subject to
// p.budget. It recomputes per-type descriptor counts from sl.layout
// to check against budget.Counts, and the new total slab capacity
// against budget.Total.
func (p *Pool) grow(sl *slab) error {
	oldCap := sl.cap
	newCap := sl.cap*2 + 1
	if p.budget.Total > 0 {
		if p.total-sl.cap+newCap > p.budget.Total {
			newCap = sl.cap + (p.budget.Total - p.total)
			if newCap <= sl.cap {
				return ErrBudgetExceeded
			}
		}
	}
	counts := make(map[driver.DescType]int)
	for _, d := range sl.layout.Descriptors {
		counts[d.Type] += d.Len
	}
	for t, c := range counts {
		if limit := p.budget.countOf(t); limit > 0 {
			prevUsed := p.used[t] - c*sl.cap
			if prevUsed+c*newCap > limit {
				return ErrBudgetExceeded
			}
		}
	}
	if err := sl.heap.New(newCap); err != nil {
		return fmt.Errorf(prefix+"grow: %w", err)
	}
	p.total += newCap - sl.cap
	for t, c := range counts {
		p.used[t] += c * (newCap - sl.cap)
	}
	sl.cap = newCap
	if deltaBits := newCap - sl.used.Len(); deltaBits > 0 {
		const nbit = 32
		sl.used.Grow((deltaBits + nbit - 1) / nbit)
	}
	// bitvec rounds its backing storage up to a whole number of 32-bit
	// words, so [oldCap, newCap) may already be marked used from a
	// prior grow's padding reservation: free it now that it is real
	// capacity, then re-reserve whatever still lies past newCap so
	// Search never hands out a copy index the budget check above did
	// not account for.
	for i := oldCap; i < newCap && i < sl.used.Len(); i++ {
		sl.used.Unset(i)
	}
	for i := newCap; i < sl.used.Len(); i++ {
		sl.used.Set(i)
	}
	return nil
}

// Clear destroys every native heap the pool has allocated. Live Sets
// referencing those heaps must not be used afterwards.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for h, sl := range p.slabs {
		sl.heap.Destroy()
		delete(p.slabs, h)
	}
	p.used = make(map[driver.DescType]int)
	p.total = 0
}
