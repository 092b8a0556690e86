package rescache

import (
	"fmt"

	"github.com/rtcore/rtcore/driver"
)

// DescTable returns the driver.DescTable binding the given ordered
// list of descriptor-set heaps into a single pipeline layout,
// building it if no table with this exact sequence of set layouts has
// been cached yet. heaps and setHashes must have the same length and
// order: setHashes[i] is the desc.LayoutSet.Hash (or equivalent
// stable identifier) of heaps[i]'s layout, used only to key the
// cache — DescTable does not itself recompute a structural hash of
// the heaps, since the per-set layout hash the caller already has is
// cheaper and exactly as precise.
//
// This is spec.md's "PipelineLayout(shaderLayout)" cache entry: the
// per-(set, binding) DescriptorSetLayout a shader expects is already
// owned and pooled by the desc package (see DESIGN.md), so this
// category only covers the step above it, binding a fixed ordered set
// of those layouts into one pipeline-wide table.
func (c *Cache) DescTable(heaps []driver.DescHeap, setHashes []uint64) (Handle[driver.DescTable], error) {
	w := newHasher()
	w.putInt(len(setHashes))
	for _, h := range setHashes {
		w.putUint64(h)
	}
	return c.descTables.getOrCreate(w.sum(), func() (driver.DescTable, error) {
		t, err := c.gpu.NewDescTable(heaps)
		if err != nil {
			return nil, fmt.Errorf(prefix+"DescTable: %w", err)
		}
		return t, nil
	})
}
