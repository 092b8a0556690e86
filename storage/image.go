package storage

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rtcore/rtcore/driver"
)

const imgPrefix = "storage: image: "

func imgErr(reason string) error { return errors.New(imgPrefix + reason) }

// ErrIncompatibleView is returned when a requested view configuration
// is not compatible with the ImageStorage it is created from, per the
// type/layer/mip-level compatibility table.
var ErrIncompatibleView = imgErr("incompatible view configuration")

// ImageType classifies the dimensionality an ImageStorage was created
// with, and constrains which view types can be derived from it.
type ImageType int

// Image types.
const (
	Image1D ImageType = iota
	Image2D
	Image3D
)

// ImageFormat describes the shape of an ImageStorage: its extent,
// pixel format, and the number of mip levels, array layers and
// samples it was allocated with.
type ImageFormat struct {
	Extent   driver.Dim3D
	Pixel    driver.PixelFmt
	Levels   int
	Layers   int
	Samples  int
}

// pendingUsage is a sentinel recorded in ImageStorage.layouts while a
// layer's transition is in flight, between setPending and
// unsetPending. It is never a valid ResourceUsage.
const pendingUsage = ResourceUsage(-1)

// ImageStorage is a GPU image allocation with a tracked per-layer
// usage history. Unlike BufferStorage, an image's validity for a
// given operation depends on its current layout, so each array layer
// carries its own atomically tracked ResourceUsage rather than a
// single whole-image value; single-layer images simply have one
// entry.
type ImageStorage struct {
	native driver.Image

	typ           ImageType
	format        ImageFormat
	resourceUsage ResourceUsage
	memoryUsage   MemoryUsage

	layouts []atomic.Int64
}

// NewImageStorage allocates a new ImageStorage.
func NewImageStorage(gpu driver.GPU, typ ImageType, format ImageFormat, resourceUsage ResourceUsage, memoryUsage MemoryUsage) (*ImageStorage, error) {
	if format.Layers < 1 {
		format.Layers = 1
	}
	if format.Levels < 1 {
		format.Levels = 1
	}
	if format.Samples < 1 {
		format.Samples = 1
	}
	img, err := gpu.NewImage(format.Pixel, format.Extent, format.Layers, format.Levels, format.Samples, imageUsage(resourceUsage))
	if err != nil {
		return nil, fmt.Errorf(imgPrefix+"%w", err)
	}
	s := &ImageStorage{
		native:        img,
		typ:           typ,
		format:        format,
		resourceUsage: resourceUsage,
		memoryUsage:   memoryUsage,
		layouts:       make([]atomic.Int64, format.Layers),
	}
	for i := range s.layouts {
		s.layouts[i].Store(int64(Undefined))
	}
	return s, nil
}

// Native returns the underlying driver.Image.
func (s *ImageStorage) Native() driver.Image { return s.native }

// Type returns the image's dimensionality.
func (s *ImageStorage) Type() ImageType { return s.typ }

// Format returns the image's shape.
func (s *ImageStorage) Format() ImageFormat { return s.format }

// ResourceUsage returns the usage the image was created for.
func (s *ImageStorage) ResourceUsage() ResourceUsage { return s.resourceUsage }

// MemoryUsage returns the memory domain the image was allocated from.
func (s *ImageStorage) MemoryUsage() MemoryUsage { return s.memoryUsage }

// LastUsage returns the ResourceUsage last recorded for layer 0. For
// single-layer images (the common case) this is the image's whole
// usage; callers dealing with arrays should use LayerUsage.
func (s *ImageStorage) LastUsage() ResourceUsage { return s.LayerUsage(0) }

// LayerUsage returns the ResourceUsage last recorded for the given
// array layer. It panics if layer has a transition in flight; callers
// must not observe a layer mid-transition.
func (s *ImageStorage) LayerUsage(layer int) ResourceUsage {
	v := s.layouts[layer].Load()
	if v == int64(pendingUsage) {
		panic(imgPrefix + "LayerUsage: layer has a transition in flight")
	}
	return ResourceUsage(v)
}

// setPending atomically swaps a layer's recorded usage to the
// pending sentinel and returns the usage it replaced. It panics if
// the layer already has a transition in flight.
func (s *ImageStorage) setPending(layer int) ResourceUsage {
	prev := ResourceUsage(s.layouts[layer].Swap(int64(pendingUsage)))
	if prev == pendingUsage {
		panic(imgPrefix + "setPending: layer already has a transition in flight")
	}
	return prev
}

// unsetPending clears the pending sentinel set by setPending, storing
// the layer's new usage. It panics if the layer was not pending.
func (s *ImageStorage) unsetPending(layer int, usage ResourceUsage) {
	if !s.layouts[layer].CompareAndSwap(int64(pendingUsage), int64(usage)) {
		panic(imgPrefix + "unsetPending: layer was not pending")
	}
}

// Transition records, into cb, the barriers needed to move
// [layer, layer+layers) from their current usage to newUsage, and
// updates the tracked per-layer usage accordingly. Contiguous layers
// that share the same prior usage are coalesced into a single
// driver.Transition; layers whose prior usage differs are each given
// their own.
func (s *ImageStorage) Transition(cb driver.CmdBuffer, layer, layers int, newUsage ResourceUsage) {
	if layers <= 0 {
		return
	}
	prevs := make([]ResourceUsage, layers)
	for i := 0; i < layers; i++ {
		prevs[i] = s.setPending(layer + i)
	}

	var ts []driver.Transition
	start := 0
	for i := 1; i <= layers; i++ {
		if i < layers && prevs[i] == prevs[start] {
			continue
		}
		prev := prevs[start]
		ts = append(ts, driver.Transition{
			Barrier:      transitionBarrier(prev, newUsage),
			LayoutBefore: layoutFor(prev),
			LayoutAfter:  layoutFor(newUsage),
			Img:          s.native,
			Layer:        layer + start,
			Layers:       i - start,
			Level:        0,
			Levels:       s.format.Levels,
		})
		start = i
	}
	cb.Transition(ts)

	for i := 0; i < layers; i++ {
		s.unsetPending(layer+i, newUsage)
	}
}

// Destroy releases the native image. All views created from the
// image must be destroyed first.
func (s *ImageStorage) Destroy() {
	if s.native != nil {
		s.native.Destroy()
		s.native = nil
	}
}

// viewCompatible reports whether viewType/layers/levels is a legal
// view configuration for an image of type typ with the given extent,
// per the compatibility table:
//
//	1D: 1D (exactly 1 layer) or 1DArray (any layer count), any mip range.
//	2D: 2D/2DArray/Cube/CubeArray/2DMultisample/2DMultisampleArray; 2D
//	    requires exactly 1 layer, Cube exactly 6, CubeArray a multiple
//	    of 6, 2DMultisample exactly 1; 2DArray and 2DMultisampleArray
//	    accept any layer count.
//	3D: 3D (1 layer) or 2D/2DArray views of a single mip level.
func viewCompatible(typ ImageType, viewType driver.ViewType, layers, levels int) bool {
	switch typ {
	case Image1D:
		switch viewType {
		case driver.IView1D:
			return layers == 1
		case driver.IView1DArray:
			return true
		}
	case Image2D:
		switch viewType {
		case driver.IView2D:
			return layers == 1
		case driver.IView2DArray:
			return true
		case driver.IViewCube:
			return layers == 6
		case driver.IViewCubeArray:
			return layers%6 == 0
		case driver.IView2DMS:
			return layers == 1
		case driver.IView2DMSArray:
			return true
		}
	case Image3D:
		switch viewType {
		case driver.IView3D:
			return layers == 1
		case driver.IView2D:
			return layers == 1 && levels == 1
		case driver.IView2DArray:
			return levels == 1
		}
	}
	return false
}

// ImageView is a typed view of a sub-range of an ImageStorage's
// layers and mip levels.
type ImageView struct {
	native  driver.ImageView
	storage *ImageStorage
	typ     driver.ViewType
	layer   int
	layers  int
	level   int
	levels  int
}

// NewImageView creates a view of storage selecting
// [layer, layer+layers) and [level, level+levels), typed as typ. It
// returns ErrIncompatibleView if the combination is not legal for
// storage's ImageType.
func NewImageView(storage *ImageStorage, typ driver.ViewType, layer, layers, level, levels int) (*ImageView, error) {
	if layer < 0 || layers < 1 || layer+layers > storage.format.Layers ||
		level < 0 || levels < 1 || level+levels > storage.format.Levels {
		return nil, ErrIncompatibleView
	}
	if !viewCompatible(storage.typ, typ, layers, levels) {
		return nil, ErrIncompatibleView
	}
	v, err := storage.native.NewView(typ, layer, layers, level, levels)
	if err != nil {
		return nil, fmt.Errorf(imgPrefix+"%w", err)
	}
	return &ImageView{
		native:  v,
		storage: storage,
		typ:     typ,
		layer:   layer,
		layers:  layers,
		level:   level,
		levels:  levels,
	}, nil
}

// Native returns the underlying driver.ImageView.
func (v *ImageView) Native() driver.ImageView { return v.native }

// Storage returns the ImageStorage this view was created from.
func (v *ImageView) Storage() *ImageStorage { return v.storage }

// Type returns the view's driver.ViewType.
func (v *ImageView) Type() driver.ViewType { return v.typ }

// Layers returns the view's [layer, layer+layers) range.
func (v *ImageView) Layers() (layer, layers int) { return v.layer, v.layers }

// Levels returns the view's [level, level+levels) mip range.
func (v *ImageView) Levels() (level, levels int) { return v.level, v.levels }

// Destroy releases the native view. It must be called before the
// backing ImageStorage is destroyed.
func (v *ImageView) Destroy() {
	if v.native != nil {
		v.native.Destroy()
		v.native = nil
	}
}

// Texture bundles an ImageStorage, a default ImageView over its full
// range, and a Sampler, matching the (ImageStorage, ImageView,
// Sampler) triple callers bind as a single unit. Bitmap optionally
// retains the CPU-side pixel data the texture was uploaded from, for
// callers that need to read it back without a GPU round trip.
type Texture struct {
	Storage *ImageStorage
	View    *ImageView
	Sampler *Sampler
	Bitmap  []byte
}

// Destroy releases the view only. It does not destroy Storage or
// Sampler, since those may be shared with other textures; callers
// that exclusively own them must destroy them separately.
func (t *Texture) Destroy() {
	if t.View != nil {
		t.View.Destroy()
		t.View = nil
	}
}
