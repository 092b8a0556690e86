// Package query implements query allocation: handing out individual
// query slots of a given driver.QueryType out of batches of native
// query pools, without requiring the caller to size a QueryPool ahead
// of time.
//
// A request for a query first searches the existing batches of the
// requested type for a free slot. Only when none has one does it
// allocate an entirely new native batch and append it; batches are
// never shrunk or reclaimed once created, since a native query pool
// has no way to free a subset of its own slots.
package query

import (
	"errors"
	"fmt"

	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/internal/bitm"
)

const prefix = "query: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// ErrNotOwned is returned when a Query is released or read back
// through a Pool that did not allocate it.
var ErrNotOwned = newErr("query not owned by this pool")

// batchSize is the number of native slots allocated per new batch of
// a given QueryType, mirroring the original implementation's
// append-only batch growth.
const batchSize = 64

// batch is one native QueryPool of batchSize slots, together with a
// free-list bitmap (a set bit marks an in-use slot).
type batch struct {
	native driver.QueryPool
	used   bitm.Bitm[uint32]
}

// Query identifies a single allocated slot: the batch's native pool,
// the slot's index within it, and the type it was requested as.
type Query struct {
	Type  driver.QueryType
	pool  driver.QueryPool
	index int
	b     *batch
}

// Pool hands out Query slots of any driver.QueryType, growing its set
// of native batches on demand.
type Pool struct {
	gpu     driver.GPU
	batches map[driver.QueryType][]*batch
}

// NewPool creates an empty Pool. Native batches are allocated lazily
// from gpu as Request calls require them.
func NewPool(gpu driver.GPU) *Pool {
	return &Pool{gpu: gpu, batches: make(map[driver.QueryType][]*batch)}
}

func (p *Pool) newBatch(qt driver.QueryType) (*batch, error) {
	native, err := p.gpu.NewQueryPool(qt, batchSize)
	if err != nil {
		return nil, fmt.Errorf("%snew batch: %w", prefix, err)
	}
	if err := native.Reset(0, batchSize); err != nil {
		native.Destroy()
		return nil, fmt.Errorf("%sreset new batch: %w", prefix, err)
	}
	b := &batch{native: native}
	b.used.Grow(batchSize / 32)
	p.batches[qt] = append(p.batches[qt], b)
	return b, nil
}

// Request allocates a single query slot of the given type, growing a
// new native batch only if every existing batch of that type is full.
func (p *Pool) Request(qt driver.QueryType) (*Query, error) {
	for _, b := range p.batches[qt] {
		if idx, ok := b.used.Search(); ok {
			b.used.Set(idx)
			return &Query{Type: qt, pool: b.native, index: idx, b: b}, nil
		}
	}
	b, err := p.newBatch(qt)
	if err != nil {
		return nil, err
	}
	idx, _ := b.used.Search()
	b.used.Set(idx)
	return &Query{Type: qt, pool: b.native, index: idx, b: b}, nil
}

// Release returns q's slot to its batch's free list. It must not be
// called again, or called for a query already reset with Reset, until
// the slot's pending writes have completed.
func (p *Pool) Release(q *Query) error {
	batches := p.batches[q.Type]
	owned := false
	for _, b := range batches {
		if b == q.b {
			owned = true
			break
		}
	}
	if !owned {
		return ErrNotOwned
	}
	q.b.used.Unset(q.index)
	return nil
}

// Reset prepares q's slot for a new round of writes. It must be
// called before the slot's first use and again before every reuse.
func (q *Query) Reset() error {
	return q.pool.Reset(q.index, 1)
}

// Result reads back q's accumulated value. It blocks until q's writes
// have completed execution.
func (q *Query) Result() (uint64, error) {
	r, err := q.pool.Results(q.index, 1)
	if err != nil {
		return 0, err
	}
	return r[0], nil
}

// NativePool and Index expose the pieces a command recorder needs to
// issue BeginQuery/EndQuery against a driver.QueryCmdBuffer.
func (q *Query) NativePool() driver.QueryPool { return q.pool }
func (q *Query) Index() int                   { return q.index }

// Destroy releases every native batch the Pool has allocated. The
// Pool must not be used afterwards.
func (p *Pool) Destroy() {
	for _, batches := range p.batches {
		for _, b := range batches {
			b.native.Destroy()
		}
	}
	p.batches = make(map[driver.QueryType][]*batch)
}
