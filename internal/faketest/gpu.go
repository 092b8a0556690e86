// Package faketest provides a hand-rolled, in-memory implementation
// of the driver package's interfaces, for use from other packages'
// tests. It performs no real GPU work: buffers are backed by Go
// byte slices, commands are recorded into a slice of closures and
// "executed" synchronously when committed, and every Destroy is a
// no-op beyond bookkeeping used to catch use-after-destroy in tests.
package faketest

import (
	"errors"
	"sync"

	"github.com/rtcore/rtcore/driver"
)

// GPU is a fake driver.GPU backed entirely by host memory.
type GPU struct {
	mu      sync.Mutex
	limits  driver.Limits
	feats   driver.Features
	drv     driver.Driver
	commits int
}

// NewGPU creates a fake GPU with generous limits, suitable for
// exercising allocation and binding logic without hitting any
// implementation ceiling.
func NewGPU() *GPU {
	return &GPU{
		limits: driver.Limits{
			MaxImage1D:        16384,
			MaxImage2D:        16384,
			MaxImageCube:      16384,
			MaxImage3D:        2048,
			MaxLayers:         2048,
			MaxDescHeaps:      32,
			MaxDBuffer:        64,
			MaxDImage:         64,
			MaxDConstant:      64,
			MaxDTexture:       64,
			MaxDSampler:       64,
			MaxDBufferRange:   1 << 28,
			MaxDConstantRange: 1 << 16,
			MaxColorTargets:   8,
			MaxFBSize:         [2]int{16384, 16384},
			MaxFBLayers:       2048,
			MaxRenderSize:     [2]int{16384, 16384},
			MaxRenderLayers:   2048,
			MaxPointSize:      256,
			MaxViewports:      16,
			MaxVertexIn:       32,
			MaxFragmentIn:     32,
			MaxDispatch:       [3]int{65535, 65535, 65535},
		},
		feats: driver.Features{
			CubeArray:         true,
			MultiDrawIndirect: true,
			WideLines:         true,
		},
	}
}

// Commits reports how many times Commit was called, for assertions
// about batching behavior.
func (g *GPU) Commits() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commits
}

func (g *GPU) Driver() driver.Driver { return g.drv }

func (g *GPU) Commit(wk *driver.WorkItem, ch chan<- *driver.WorkItem) error {
	g.mu.Lock()
	g.commits++
	g.mu.Unlock()
	for _, cb := range wk.Work {
		fcb, ok := cb.(*CmdBuffer)
		if !ok {
			continue
		}
		if fcb.recording {
			return errors.New("faketest: Commit called with a recording command buffer")
		}
		for _, fn := range fcb.ops {
			fn()
		}
	}
	go func() { ch <- wk }()
	return nil
}

func (g *GPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	return &CmdBuffer{}, nil
}

func (g *GPU) NewRenderPass(att []driver.Attachment, sub []driver.Subpass) (driver.RenderPass, error) {
	return &RenderPass{att: att, sub: sub}, nil
}

func (g *GPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	return &ShaderCode{data: append([]byte(nil), data...)}, nil
}

func (g *GPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	return &DescHeap{descs: append([]driver.Descriptor(nil), ds...)}, nil
}

func (g *GPU) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) {
	return &DescTable{heaps: append([]driver.DescHeap(nil), dh...)}, nil
}

func (g *GPU) NewPipeline(state any) (driver.Pipeline, error) {
	switch state.(type) {
	case *driver.GraphState, *driver.CompState:
		return &Pipeline{}, nil
	default:
		return nil, errors.New("faketest: NewPipeline: state must be *GraphState or *CompState")
	}
}

func (g *GPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	if size <= 0 {
		return nil, errors.New("faketest: NewBuffer: size must be positive")
	}
	return &Buffer{data: make([]byte, size), visible: visible, usg: usg}, nil
}

func (g *GPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	if layers < 1 || levels < 1 || samples < 1 {
		return nil, errors.New("faketest: NewImage: layers, levels and samples must be >= 1")
	}
	return &Image{pf: pf, size: size, layers: layers, levels: levels, samples: samples, usg: usg}, nil
}

func (g *GPU) NewSampler(spln *driver.Sampling) (driver.Sampler, error) {
	s := *spln
	return &Sampler{spln: s}, nil
}

func (g *GPU) NewQueryPool(qt driver.QueryType, count int) (driver.QueryPool, error) {
	if count <= 0 {
		return nil, errors.New("faketest: NewQueryPool: count must be positive")
	}
	return &QueryPool{qt: qt, slots: make([]uint64, count)}, nil
}

func (g *GPU) Limits() driver.Limits     { return g.limits }
func (g *GPU) Features() driver.Features { return g.feats }

// CmdBuffer is a fake driver.CmdBuffer. Instead of translating
// commands into a native representation, it simply records a closure
// per issued command and runs them in order when GPU.Commit observes
// the command buffer outside of recording.
type CmdBuffer struct {
	recording bool
	destroyed bool
	ops       []func()
}

func (c *CmdBuffer) Destroy() { c.destroyed = true }

func (c *CmdBuffer) Begin() error {
	c.recording = true
	c.ops = c.ops[:0]
	return nil
}

func (c *CmdBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuf, clear []driver.ClearValue) {}
func (c *CmdBuffer) NextSubpass()                                                                   {}
func (c *CmdBuffer) EndPass()                                                                        {}
func (c *CmdBuffer) BeginWork(wait bool)                                                             {}
func (c *CmdBuffer) EndWork()                                                                        {}
func (c *CmdBuffer) BeginBlit(wait bool)                                                             {}
func (c *CmdBuffer) EndBlit()                                                                        {}
func (c *CmdBuffer) SetPipeline(pl driver.Pipeline)                                                  {}
func (c *CmdBuffer) SetViewport(vp []driver.Viewport)                                                {}
func (c *CmdBuffer) SetScissor(sciss []driver.Scissor)                                               {}
func (c *CmdBuffer) SetBlendColor(r, g, b, a float32)                                                {}
func (c *CmdBuffer) SetStencilRef(value uint32)                                                      {}
func (c *CmdBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64)                        {}
func (c *CmdBuffer) SetIndexBuf(format driver.IndexFmt, buf driver.Buffer, off int64)                {}
func (c *CmdBuffer) SetDescTableGraph(table driver.DescTable, start int, heapCopy []int)             {}
func (c *CmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int)               {}
func (c *CmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int)                                {}
func (c *CmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int)                  {}
func (c *CmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int)                                     {}

func (c *CmdBuffer) CopyBuffer(param *driver.BufferCopy) {
	c.ops = append(c.ops, func() {
		from := param.From.(*Buffer)
		to := param.To.(*Buffer)
		copy(to.data[param.ToOff:param.ToOff+param.Size], from.data[param.FromOff:param.FromOff+param.Size])
	})
}

func (c *CmdBuffer) CopyImage(param *driver.ImageCopy) {}

func (c *CmdBuffer) CopyBufToImg(param *driver.BufImgCopy) {
	c.ops = append(c.ops, func() {
		img := param.Img.(*Image)
		img.lastWrite = append([]byte(nil), param.Buf.(*Buffer).data...)
	})
}

func (c *CmdBuffer) CopyImgToBuf(param *driver.BufImgCopy) {
	c.ops = append(c.ops, func() {
		img := param.Img.(*Image)
		buf := param.Buf.(*Buffer)
		copy(buf.data[param.BufOff:], img.lastWrite)
	})
}

func (c *CmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {
	c.ops = append(c.ops, func() {
		b := buf.(*Buffer)
		for i := off; i < off+size; i++ {
			b.data[i] = value
		}
	})
}

func (c *CmdBuffer) Barrier(b []driver.Barrier)         {}
func (c *CmdBuffer) Transition(t []driver.Transition)   {}

// BeginQuery marks the slot at index as accumulating. The fake writes
// a deterministic, non-zero value instead of a real sample, which is
// enough to distinguish "written" from "never written" in tests.
func (c *CmdBuffer) BeginQuery(pool driver.QueryPool, index int) {
	c.ops = append(c.ops, func() {
		pool.(*QueryPool).slots[index] = 1
	})
}

// EndQuery is a no-op in the fake: the value is already written by
// BeginQuery's recorded closure.
func (c *CmdBuffer) EndQuery(pool driver.QueryPool, index int) {}

func (c *CmdBuffer) End() error {
	c.recording = false
	return nil
}

func (c *CmdBuffer) Reset() error {
	c.recording = false
	c.ops = c.ops[:0]
	return nil
}

func (c *CmdBuffer) IsRecording() bool { return c.recording }

// Buffer is a fake driver.Buffer backed by a Go byte slice.
type Buffer struct {
	data      []byte
	visible   bool
	usg       driver.Usage
	destroyed bool
}

func (b *Buffer) Destroy()        { b.destroyed = true }
func (b *Buffer) Visible() bool   { return b.visible }
func (b *Buffer) Cap() int64      { return int64(len(b.data)) }
func (b *Buffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	return b.data
}

// Image is a fake driver.Image. It does not hold real pixel data
// beyond whatever the last CopyBufToImg wrote, which is enough to
// exercise staging round-trips in tests.
type Image struct {
	pf        driver.PixelFmt
	size      driver.Dim3D
	layers    int
	levels    int
	samples   int
	usg       driver.Usage
	lastWrite []byte
	destroyed bool
}

func (i *Image) Destroy() { i.destroyed = true }

func (i *Image) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	if layer+layers > i.layers || level+levels > i.levels {
		return nil, errors.New("faketest: NewView: range exceeds image")
	}
	return &ImageView{img: i, typ: typ, layer: layer, layers: layers, level: level, levels: levels}, nil
}

// ImageView is a fake driver.ImageView.
type ImageView struct {
	img       *Image
	typ       driver.ViewType
	layer     int
	layers    int
	level     int
	levels    int
	destroyed bool
}

func (v *ImageView) Destroy()            { v.destroyed = true }
func (v *ImageView) Image() driver.Image { return v.img }

// Sampler is a fake driver.Sampler.
type Sampler struct {
	spln      driver.Sampling
	destroyed bool
}

func (s *Sampler) Destroy() {}

// RenderPass is a fake driver.RenderPass.
type RenderPass struct {
	att       []driver.Attachment
	sub       []driver.Subpass
	destroyed bool
}

func (p *RenderPass) Destroy() {}

func (p *RenderPass) NewFB(iv []driver.ImageView, width, height, layers int) (driver.Framebuf, error) {
	return &Framebuf{iv: iv, width: width, height: height, layers: layers}, nil
}

// Framebuf is a fake driver.Framebuf.
type Framebuf struct {
	iv                    []driver.ImageView
	width, height, layers int
	destroyed             bool
}

func (f *Framebuf) Destroy() { f.destroyed = true }

// ShaderCode is a fake driver.ShaderCode.
type ShaderCode struct {
	data      []byte
	destroyed bool
}

func (s *ShaderCode) Destroy() { s.destroyed = true }

// DescHeap is a fake driver.DescHeap.
type DescHeap struct {
	descs     []driver.Descriptor
	count     int
	destroyed bool
}

func (h *DescHeap) Destroy() { h.destroyed = true }

func (h *DescHeap) New(n int) error {
	h.count = n
	return nil
}

func (h *DescHeap) SetBuffer(cpy, nr, start int, buf []driver.Buffer, off, size []int64)  {}
func (h *DescHeap) SetImage(cpy, nr, start int, iv []driver.ImageView)                    {}
func (h *DescHeap) SetSampler(cpy, nr, start int, splr []driver.Sampler)                  {}
func (h *DescHeap) Count() int                                                            { return h.count }

// DescTable is a fake driver.DescTable.
type DescTable struct {
	heaps     []driver.DescHeap
	destroyed bool
}

func (t *DescTable) Destroy() { t.destroyed = true }

// Pipeline is a fake driver.Pipeline.
type Pipeline struct{ destroyed bool }

func (p *Pipeline) Destroy() { p.destroyed = true }

// Destroyed reports whether Destroy has been called, for tests that
// need to observe a cached handle's lifetime.
func (p *Pipeline) Destroyed() bool { return p.destroyed }

// QueryPool is a fake driver.QueryPool backed by a plain uint64 slice.
type QueryPool struct {
	qt        driver.QueryType
	slots     []uint64
	destroyed bool
}

func (p *QueryPool) Destroy() { p.destroyed = true }

func (p *QueryPool) Reset(first, count int) error {
	if first < 0 || count < 0 || first+count > len(p.slots) {
		return errors.New("faketest: QueryPool.Reset: range out of bounds")
	}
	for i := first; i < first+count; i++ {
		p.slots[i] = 0
	}
	return nil
}

func (p *QueryPool) Results(first, count int) ([]uint64, error) {
	if first < 0 || count < 0 || first+count > len(p.slots) {
		return nil, errors.New("faketest: QueryPool.Results: range out of bounds")
	}
	return append([]uint64(nil), p.slots[first:first+count]...), nil
}
