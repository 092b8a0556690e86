// Package desc implements the descriptor subsystem: a pool of native
// descriptor heaps keyed by the structural hash of the layout they
// were created for, and the DescriptorSet handles callers acquire
// from it.
//
// A LayoutSet is the ordered list of driver.Descriptor declarations a
// shader expects in one binding set; two LayoutSets with the same
// ordered content hash identically and share the same pool slab.
package desc

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/rtcore/rtcore/driver"
)

// LayoutSet is the ordered descriptor layout of a single binding set,
// as declared by a shader. Order is significant: it is part of the
// structural hash, since it also determines dynamic-offset ordering
// (see SetWrites).
type LayoutSet struct {
	Descriptors []driver.Descriptor
}

// Hash returns a structural hash of the layout, order-sensitive and
// independent of memory layout. Two LayoutSets with equal Descriptors
// slices (same order, same values) hash identically.
func (s LayoutSet) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	for _, d := range s.Descriptors {
		put(int(d.Type))
		put(int(d.Stages))
		put(d.Nr)
		put(d.Len)
	}
	return h.Sum64()
}
