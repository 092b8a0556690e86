package rescache

import "github.com/rtcore/rtcore/driver"

// ColorFormat is one attachment's (pixelFormat, sampleCount) pair.
type ColorFormat struct {
	Pixel   driver.PixelFmt
	Samples int
}

func (f ColorFormat) hash(w *hasher) {
	w.putInt(int(f.Pixel))
	w.putInt(f.Samples)
}

// FramebufferFormat is the ordered tuple of attachment formats shared
// by render-pass and pipeline caching: the color attachments in
// subpass order, plus an optional depth/stencil entry.
type FramebufferFormat struct {
	Color []ColorFormat
	Depth *ColorFormat
}

func (f FramebufferFormat) hash(w *hasher) {
	w.putInt(len(f.Color))
	for _, c := range f.Color {
		c.hash(w)
	}
	if f.Depth != nil {
		w.putBool(true)
		f.Depth.hash(w)
	} else {
		w.putBool(false)
	}
}

// Hash returns a structural hash of the format, for callers that key
// their own caches on it (pipeline.go folds it into PipelineKey).
func (f FramebufferFormat) Hash() uint64 {
	w := newHasher()
	f.hash(w)
	return w.sum()
}

// PipelineKey is the structural key of a graphics pipeline: every
// GraphState field that affects the compiled native object, plus the
// caller-supplied hash of the shader's reflected resource layout
// (desc.LayoutSet.Hash or equivalent) and of the target framebuffer
// format. Viewport state is not part of the key: this driver always
// sets the viewport dynamically via CmdBuffer.SetViewport, so there
// is no static viewport configuration baked into a pipeline.
type PipelineKey struct {
	ShaderLayoutHash uint64
	EntryPoint       string
	Input            []driver.VertexIn
	Topology         driver.Topology
	Raster           driver.RasterState
	Samples          int
	DS               driver.DSState
	Blend            driver.BlendState
	FBFormatHash     uint64
}

// Hash returns the pipeline's structural hash.
func (k PipelineKey) Hash() uint64 {
	w := newHasher()
	w.putUint64(k.ShaderLayoutHash)
	w.putString(k.EntryPoint)
	w.putInt(len(k.Input))
	for _, in := range k.Input {
		w.putVertexIn(in)
	}
	w.putInt(int(k.Topology))
	w.putRaster(k.Raster)
	w.putInt(k.Samples)
	w.putDS(k.DS)
	w.putBlend(k.Blend)
	w.putUint64(k.FBFormatHash)
	return w.sum()
}

// ComputeKey is the structural key of a compute pipeline: just the
// shader's reflected resource layout hash, since a compute pipeline
// has no fixed-function state to vary over.
type ComputeKey struct {
	ShaderLayoutHash uint64
}

// Hash returns the compute pipeline's structural hash.
func (k ComputeKey) Hash() uint64 {
	w := newHasher()
	w.putUint64(k.ShaderLayoutHash)
	w.putInt(-1) // distinguishes a ComputeKey from a PipelineKey hash
	return w.sum()
}
