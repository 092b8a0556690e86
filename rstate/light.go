package rstate

import (
	"errors"

	"github.com/rtcore/rtcore/internal/bitm"
	"github.com/rtcore/rtcore/linear"
)

// Light describes a single point, directional or spot light.
type Light struct {
	Kind      LightKind
	Position  linear.V3
	Direction linear.V3
	Intensity float32
	ConeAngle float32 // LightSpot only
}

// LightHandle identifies a Light previously added to a
// LightCollection. The zero LightHandle is never returned by AddLight.
type LightHandle uint32

// ErrBadLightHandle is returned by RemoveLight for a handle that was
// never allocated or was already removed.
var ErrBadLightHandle = errors.New("rstate: light handle not in use")

// LightCollection is a dense, handle-addressed set of lights. Removed
// slots are tracked in a free-list bitmap (internal/bitm) and reused
// by the next AddLight, the same allocation strategy query.Pool uses
// for native query slots.
type LightCollection struct {
	lights []Light
	used   bitm.Bitm[uint32]
	gen    uint32
}

// NewLightCollection returns an empty LightCollection.
func NewLightCollection() *LightCollection {
	return &LightCollection{}
}

// AddLight inserts l and returns a handle identifying it.
func (c *LightCollection) AddLight(l Light) LightHandle {
	idx, ok := c.used.Search()
	if !ok {
		idx = c.used.Grow(1)
	}
	c.used.Set(idx)
	if idx >= len(c.lights) {
		grown := make([]Light, idx+1)
		copy(grown, c.lights)
		c.lights = grown
	}
	c.lights[idx] = l
	c.gen++
	return LightHandle(idx + 1)
}

// RemoveLight releases the slot held by h.
func (c *LightCollection) RemoveLight(h LightHandle) error {
	if h == 0 {
		return ErrBadLightHandle
	}
	idx := int(h) - 1
	if idx >= len(c.lights) || !c.used.IsSet(idx) {
		return ErrBadLightHandle
	}
	c.used.Unset(idx)
	c.lights[idx] = Light{}
	c.gen++
	return nil
}

// Gen returns the collection's current generation. It increments on
// every AddLight/RemoveLight.
func (c *LightCollection) Gen() uint32 { return c.gen }

// Count returns the number of lights currently in use.
func (c *LightCollection) Count() int {
	n := 0
	for i := 0; i < c.used.Len(); i++ {
		if c.used.IsSet(i) {
			n++
		}
	}
	return n
}

// writeLayout packs every in-use light contiguously into out, skipping
// holes left by RemoveLight, and returns the count written. out must
// have at least Count() elements.
func (c *LightCollection) writeLayout(out []LightLayout) int {
	n := 0
	for i := 0; i < c.used.Len() && n < len(out); i++ {
		if !c.used.IsSet(i) {
			continue
		}
		l := &c.lights[i]
		out[n].setKind(l.Kind)
		out[n].setIntensity(l.Intensity)
		out[n].setConeAngle(l.ConeAngle)
		out[n].setPosition(&l.Position)
		out[n].setDirection(&l.Direction)
		n++
	}
	return n
}
