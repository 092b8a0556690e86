package rescache

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"
	"reflect"

	"github.com/rtcore/rtcore/driver"
)

// hasher accumulates a structural hash the same way desc.LayoutSet
// does: FNV-64a, order-sensitive, value-based for every scalar field.
type hasher struct {
	h   hash.Hash64
	buf [8]byte
}

func newHasher() *hasher { return &hasher{h: fnv.New64a()} }

func (w *hasher) putInt(v int) { w.putUint64(uint64(v)) }

func (w *hasher) putUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[:], v)
	w.h.Write(w.buf[:])
}

func (w *hasher) putFloat32(v float32) { w.putUint64(uint64(math.Float32bits(v))) }

func (w *hasher) putBool(v bool) {
	if v {
		w.putInt(1)
	} else {
		w.putInt(0)
	}
}

func (w *hasher) putString(v string) { w.h.Write([]byte(v)) }

// putPointer folds in the identity of an interface value wrapping a
// pointer (driver.ImageView, driver.DescHeap, ...): the same Go
// object always contributes the same bits, which is what matters for
// cache sharing, since none of these types are otherwise comparable
// by value.
func (w *hasher) putPointer(v any) {
	w.putUint64(uint64(reflect.ValueOf(v).Pointer()))
}

func (w *hasher) sum() uint64 { return w.h.Sum64() }

func (w *hasher) putVertexIn(v driver.VertexIn) {
	w.putInt(int(v.Format))
	w.putInt(v.Stride)
	w.putInt(v.Nr)
	w.putString(v.Name)
}

func (w *hasher) putRaster(v driver.RasterState) {
	w.putBool(v.Clockwise)
	w.putInt(int(v.Cull))
	w.putInt(int(v.Fill))
	w.putBool(v.DepthBias)
	w.putFloat32(v.BiasValue)
	w.putFloat32(v.BiasSlope)
	w.putFloat32(v.BiasClamp)
}

func (w *hasher) putStencil(v driver.StencilT) {
	w.putInt(int(v.DSFail[0]))
	w.putInt(int(v.DSFail[1]))
	w.putInt(int(v.Pass))
	w.putUint64(uint64(v.ReadMask))
	w.putUint64(uint64(v.WriteMask))
	w.putInt(int(v.Cmp))
}

func (w *hasher) putDS(v driver.DSState) {
	w.putBool(v.DepthTest)
	w.putBool(v.DepthWrite)
	w.putInt(int(v.DepthCmp))
	w.putBool(v.StencilTest)
	w.putStencil(v.Front)
	w.putStencil(v.Back)
}

func (w *hasher) putColorBlend(v driver.ColorBlend) {
	w.putBool(v.Blend)
	w.putInt(int(v.WriteMask))
	w.putInt(int(v.Op[0]))
	w.putInt(int(v.Op[1]))
	w.putInt(int(v.SrcFac[0]))
	w.putInt(int(v.SrcFac[1]))
	w.putInt(int(v.DstFac[0]))
	w.putInt(int(v.DstFac[1]))
}

func (w *hasher) putBlend(v driver.BlendState) {
	w.putBool(v.IndependentBlend)
	w.putInt(len(v.Color))
	for _, c := range v.Color {
		w.putColorBlend(c)
	}
}
