// Package pipeline implements PipelineState: the set of fixed-function
// and programmable sub-states that together select a native graphics
// or compute pipeline.
//
// Every sub-state (vertex input, topology, rasterization, multisample
// count, depth/stencil, color blend, shader, target framebuffer
// format) carries its own dirty flag. A setter marks its sub-state
// dirty only when the new value actually differs from the old one, so
// assigning a State from another one that has, say, only its blend
// state changed leaves every other sub-state's dirty bit untouched.
// This mirrors the copy-assignment behavior of a rendering context
// that holds one PipelineState per draw call and repeatedly
// overwrites it from a cached "current" state.
package pipeline

import "github.com/rtcore/rtcore/driver"

// Dirty is a bitmask of PipelineState sub-states that have changed
// since the last call to MarkUnchanged.
type Dirty uint16

// Sub-state dirty bits.
const (
	DirtyInput Dirty = 1 << iota
	DirtyTopology
	DirtyRaster
	DirtySamples
	DirtyDepthStencil
	DirtyBlend
	DirtyFormat
	DirtyShader
)

// ColorFormat pairs a pixel format with its sample count for one
// color attachment of a framebuffer.
type ColorFormat struct {
	Pixel   driver.PixelFmt
	Samples int
}

// FramebufferFormat is the attachment format signature of the render
// pass a pipeline will be used in. Two States that differ only in
// FramebufferFormat cannot share a native pipeline.
type FramebufferFormat struct {
	Color []ColorFormat
	Depth *ColorFormat
}

func (f FramebufferFormat) equal(o FramebufferFormat) bool {
	if len(f.Color) != len(o.Color) {
		return false
	}
	for i := range f.Color {
		if f.Color[i] != o.Color[i] {
			return false
		}
	}
	switch {
	case f.Depth == nil && o.Depth == nil:
		return true
	case f.Depth == nil || o.Depth == nil:
		return false
	default:
		return *f.Depth == *o.Depth
	}
}

func equalVertexIn(a, b []driver.VertexIn) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalColorBlend(a, b []driver.ColorBlend) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// State is a PipelineState: the full, mutable description of a
// graphics pipeline's fixed-function and programmable configuration.
// The zero State is not ready for use; call Reset or use New.
type State struct {
	input    []driver.VertexIn
	topology driver.Topology
	raster   driver.RasterState
	samples  int
	ds       driver.DSState
	blend    driver.BlendState
	format   FramebufferFormat

	vertFunc driver.ShaderFunc
	fragFunc driver.ShaderFunc
	desc     driver.DescTable

	dirty Dirty
}

// New returns a State initialized to its reset defaults.
func New() *State {
	s := &State{}
	s.Reset()
	return s
}

// SetInput replaces the vertex input layout.
func (s *State) SetInput(in []driver.VertexIn) *State {
	if !equalVertexIn(s.input, in) {
		s.dirty |= DirtyInput
	}
	s.input = in
	return s
}

// SetTopology replaces the primitive topology.
func (s *State) SetTopology(t driver.Topology) *State {
	if s.topology != t {
		s.dirty |= DirtyTopology
	}
	s.topology = t
	return s
}

// SetRaster replaces the rasterization state.
func (s *State) SetRaster(r driver.RasterState) *State {
	if s.raster != r {
		s.dirty |= DirtyRaster
	}
	s.raster = r
	return s
}

// SetSamples replaces the pipeline's rasterization sample count.
func (s *State) SetSamples(n int) *State {
	if s.samples != n {
		s.dirty |= DirtySamples
	}
	s.samples = n
	return s
}

// SetDepthStencil replaces the depth/stencil state.
func (s *State) SetDepthStencil(ds driver.DSState) *State {
	if s.ds != ds {
		s.dirty |= DirtyDepthStencil
	}
	s.ds = ds
	return s
}

// SetBlend replaces the color blend state.
func (s *State) SetBlend(b driver.BlendState) *State {
	if b.IndependentBlend != s.blend.IndependentBlend || !equalColorBlend(s.blend.Color, b.Color) {
		s.dirty |= DirtyBlend
	}
	s.blend = b
	return s
}

// SetFramebufferFormat replaces the target framebuffer's attachment
// format signature.
func (s *State) SetFramebufferFormat(f FramebufferFormat) *State {
	if !s.format.equal(f) {
		s.dirty |= DirtyFormat
	}
	s.format = f
	return s
}

// SetShader replaces the shader code, shared entry-point name and
// descriptor table layout used by the pipeline. vertCode and fragCode
// are invoked through the same entry name, mirroring a single shader
// source compiled with one permutation of vertex and fragment
// variants selected by entry.
func (s *State) SetShader(vertCode, fragCode driver.ShaderCode, entry string, desc driver.DescTable) *State {
	vert := driver.ShaderFunc{Code: vertCode, Name: entry}
	frag := driver.ShaderFunc{Code: fragCode, Name: entry}
	if vert != s.vertFunc || frag != s.fragFunc || desc != s.desc {
		s.dirty |= DirtyShader
	}
	s.vertFunc, s.fragFunc, s.desc = vert, frag, desc
	return s
}

// Reset returns State to its default configuration: no vertex input,
// triangle list topology, default raster/depth-stencil/blend states,
// one sample, no shader, entry point "main", and marks every
// sub-state dirty.
func (s *State) Reset() *State {
	s.SetInput(nil).
		SetTopology(driver.TTriangle).
		SetRaster(driver.RasterState{}).
		SetSamples(1).
		SetDepthStencil(driver.DSState{}).
		SetBlend(driver.BlendState{}).
		SetFramebufferFormat(FramebufferFormat{}).
		SetShader(nil, nil, "main", nil)
	s.MarkChanged()
	return s
}

// Assign copies every sub-state from o into s through the setters
// above and then carries over o's own dirty bits, so s.DirtyBits
// afterwards marks every sub-state whose value differs from what s
// held before the call plus every sub-state dirty in o. Assigning from
// a clean source with identical values leaves s clean.
func (s *State) Assign(o *State) *State {
	s.SetInput(o.input).
		SetTopology(o.topology).
		SetRaster(o.raster).
		SetSamples(o.samples).
		SetDepthStencil(o.ds).
		SetBlend(o.blend).
		SetFramebufferFormat(o.format).
		SetShader(o.vertFunc.Code, o.fragFunc.Code, o.vertFunc.Name, o.desc)
	s.dirty |= o.dirty
	return s
}

// MarkChanged sets every sub-state's dirty bit.
func (s *State) MarkChanged() {
	s.dirty = DirtyInput | DirtyTopology | DirtyRaster | DirtySamples |
		DirtyDepthStencil | DirtyBlend | DirtyFormat | DirtyShader
}

// MarkUnchanged clears every sub-state's dirty bit.
func (s *State) MarkUnchanged() { s.dirty = 0 }

// Changed reports whether any sub-state is dirty.
func (s *State) Changed() bool { return s.dirty != 0 }

// DirtyBits returns the sub-states currently marked dirty.
func (s *State) DirtyBits() Dirty { return s.dirty }

// Format returns the pipeline's target framebuffer format.
func (s *State) Format() FramebufferFormat { return s.format }

// Topology returns the pipeline's primitive topology.
func (s *State) Topology() driver.Topology { return s.topology }

// EntryPoint returns the shader entry-point name currently bound.
func (s *State) EntryPoint() string { return s.vertFunc.Name }

// GraphState builds the driver.GraphState this State describes, for
// use with a given render pass and subpass index.
func (s *State) GraphState(pass driver.RenderPass, subpass int) *driver.GraphState {
	return &driver.GraphState{
		VertFunc: s.vertFunc,
		FragFunc: s.fragFunc,
		Desc:     s.desc,
		Input:    s.input,
		Topology: s.topology,
		Raster:   s.raster,
		Samples:  s.samples,
		DS:       s.ds,
		Blend:    s.blend,
		Pass:     pass,
		Subpass:  subpass,
	}
}
