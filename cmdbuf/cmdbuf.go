// Package cmdbuf implements the command recorder: a stateful wrapper
// around a native driver.CmdBuffer that defers pipeline and
// descriptor-table changes until the next draw or dispatch actually
// needs them, instead of re-submitting unchanged state to the driver
// on every call.
//
// A caller mutates the Recorder's embedded pipeline.State and its
// bound descriptor table/bindings freely between draw calls; flush
// only emits the native Set* calls whose backing state has actually
// changed since the last flush.
package cmdbuf

import (
	"errors"
	"fmt"

	"github.com/rtcore/rtcore/binding"
	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/pipeline"
	"github.com/rtcore/rtcore/rescache"
	"github.com/rtcore/rtcore/storage"
)

const prefix = "cmdbuf: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// State is the lifecycle state of a Recorder.
type State int

// Recorder lifecycle states.
const (
	Initial State = iota
	Recording
	Executable
	Invalid
)

// Errors returned by Recorder methods.
var (
	ErrNotRecording = newErr("command buffer is not recording")
	ErrInPass       = newErr("command buffer is already in a render pass")
	ErrNotInPass    = newErr("command buffer is not in a render pass")
	ErrNoShader     = newErr("no shader bound")
)

// ColorAttachment is one color render target of a BeginPass call.
type ColorAttachment struct {
	View  *storage.ImageView
	Clear [4]float32
}

// DepthAttachment is the depth/stencil render target of a BeginPass
// call.
type DepthAttachment struct {
	View    *storage.ImageView
	Depth   float32
	Stencil uint32
}

type tableState struct {
	table    driver.DescTable
	start    int
	heapCopy []int
	set      bool
}

func (t tableState) equal(o tableState) bool {
	if t.table != o.table || t.start != o.start || len(t.heapCopy) != len(o.heapCopy) {
		return false
	}
	for i := range t.heapCopy {
		if t.heapCopy[i] != o.heapCopy[i] {
			return false
		}
	}
	return true
}

// Recorder wraps a native driver.CmdBuffer with deferred pipeline and
// descriptor-table scheduling. Unlike the engine this is grounded on,
// whose CommandBuffer queues its own Command objects and replays them
// into a lazily-requested native vk::CommandBuffer at a later
// compile() step, this driver's CmdBuffer is obtained once up front
// (GPU.NewCmdBuffer is cheap; there is no command-buffer pool to
// request from at compile time), so recording and compiling collapse
// into one phase: flush writes straight into the already-open native
// command buffer instead of into a deferred command list.
type Recorder struct {
	native driver.CmdBuffer
	qcb    driver.QueryCmdBuffer // nil if the backend has no query support
	cache  *rescache.Cache
	state  State

	inPass  bool
	compute bool

	Pipeline *pipeline.State
	pipeSet  bool
	curPipe  rescache.Handle[driver.Pipeline]

	compFunc  driver.ShaderFunc
	compDesc  driver.DescTable
	compDirty bool
	curComp   rescache.Handle[driver.Pipeline]

	table     tableState
	lastTable tableState
	bindGraph *binding.State
}

// New wraps native for recording, resolving pipelines and caching
// decisions through cache.
func New(native driver.CmdBuffer, cache *rescache.Cache) *Recorder {
	qcb, _ := native.(driver.QueryCmdBuffer)
	return &Recorder{
		native:    native,
		qcb:       qcb,
		cache:     cache,
		state:     Initial,
		Pipeline:  pipeline.New(),
		bindGraph: binding.NewState(),
	}
}

// CanQuery reports whether the wrapped native command buffer supports
// query recording.
func (r *Recorder) CanQuery() bool { return r.qcb != nil }

// Bindings exposes the Recorder's raw binding bookkeeping. A higher
// layer rebuilds the physical descriptor table from whatever sets
// Bindings().DirtySets() reports, supplies the rebuilt table via
// SetDescTable, and then calls Bindings().ClearDirty().
func (r *Recorder) Bindings() *binding.State { return r.bindGraph }

// State reports the Recorder's current lifecycle state.
func (r *Recorder) State() State { return r.state }

// Begin prepares the Recorder for a new round of recording. Every
// sub-state is marked changed, since the native command buffer itself
// retains no memory of what was bound in a prior recording.
func (r *Recorder) Begin() error {
	if err := r.native.Begin(); err != nil {
		r.state = Invalid
		return fmt.Errorf("%sBegin: %w", prefix, err)
	}
	r.state = Recording
	r.Pipeline.MarkChanged()
	r.pipeSet = false
	r.compDirty = true
	r.table = tableState{}
	r.lastTable = tableState{}
	r.bindGraph = binding.NewState()
	return nil
}

// End finalizes recording.
func (r *Recorder) End() error {
	if r.state != Recording {
		return ErrNotRecording
	}
	if r.inPass {
		return ErrInPass
	}
	if err := r.native.End(); err != nil {
		r.state = Invalid
		return fmt.Errorf("%sEnd: %w", prefix, err)
	}
	r.state = Executable
	return nil
}

// Reset discards all recorded commands, returning the Recorder to its
// Initial state.
func (r *Recorder) Reset() error {
	if err := r.native.Reset(); err != nil {
		r.state = Invalid
		return fmt.Errorf("%sReset: %w", prefix, err)
	}
	r.state = Initial
	r.inPass = false
	r.pipeSet = false
	return nil
}

// Native returns the wrapped driver.CmdBuffer, for submission through
// GPU.Commit.
func (r *Recorder) Native() driver.CmdBuffer { return r.native }

// SetDescTable stages the native descriptor table to bind at the next
// flush. It is a no-op on the native command buffer until a Draw,
// DrawIndexed or Dispatch actually needs it, and then only if table,
// start or heapCopy differ from what was last bound.
func (r *Recorder) SetDescTable(table driver.DescTable, start int, heapCopy []int) {
	r.table = tableState{table: table, start: start, heapCopy: heapCopy, set: true}
}

// BeginPass transitions every attachment to its render-target usage,
// resolves the framebuffer's format into the bound pipeline.State, and
// begins the render pass. color and depth (nil if the pass has no
// depth/stencil attachment) must be given in the render pass's
// attachment order.
func (r *Recorder) BeginPass(pass rescache.Handle[driver.RenderPass], fb rescache.Handle[driver.Framebuf], color []ColorAttachment, depth *DepthAttachment) error {
	if r.state != Recording {
		return ErrNotRecording
	}
	if r.inPass {
		return ErrInPass
	}

	clear := make([]driver.ClearValue, 0, len(color)+1)
	format := pipeline.FramebufferFormat{Color: make([]pipeline.ColorFormat, len(color))}
	for i, c := range color {
		layer, layers := c.View.Layers()
		c.View.Storage().Transition(r.native, layer, layers, storage.RenderTarget)
		clear = append(clear, driver.ClearValue{Color: c.Clear})
		format.Color[i] = pipeline.ColorFormat{
			Pixel:   c.View.Storage().Format().Pixel,
			Samples: c.View.Storage().Format().Samples,
		}
	}
	if depth != nil {
		layer, layers := depth.View.Layers()
		depth.View.Storage().Transition(r.native, layer, layers, storage.DepthStencil)
		clear = append(clear, driver.ClearValue{Depth: depth.Depth, Stencil: depth.Stencil})
		df := pipeline.ColorFormat{
			Pixel:   depth.View.Storage().Format().Pixel,
			Samples: depth.View.Storage().Format().Samples,
		}
		format.Depth = &df
	}

	r.Pipeline.SetFramebufferFormat(format)
	r.native.BeginPass(pass.Native(), fb.Native(), clear)
	r.inPass = true
	return nil
}

// NextSubpass advances to the render pass's next subpass.
func (r *Recorder) NextSubpass() error {
	if !r.inPass {
		return ErrNotInPass
	}
	r.native.NextSubpass()
	return nil
}

// EndPass ends the current render pass.
func (r *Recorder) EndPass() error {
	if !r.inPass {
		return ErrNotInPass
	}
	r.native.EndPass()
	r.inPass = false
	return nil
}

// flushGraphics resolves a cached native pipeline from r.Pipeline if
// it changed since the last flush, and rebinds the descriptor table
// if it was restaged via SetDescTable. Only the sub-states that
// actually differ are sent to the native command buffer.
func (r *Recorder) flushGraphics(pass driver.RenderPass, subpass int, layoutHash uint64) error {
	if r.Pipeline.Changed() {
		gs := r.Pipeline.GraphState(pass, subpass)
		if gs.VertFunc.Code == nil {
			return ErrNoShader
		}
		key := pipelineKey(r.Pipeline, layoutHash)
		h, err := r.cache.Pipeline(key, gs)
		if err != nil {
			return fmt.Errorf("%sflush: %w", prefix, err)
		}
		if r.pipeSet {
			r.curPipe.Release()
		}
		r.curPipe = h
		r.pipeSet = true
		r.native.SetPipeline(h.Native())
		r.Pipeline.MarkUnchanged()
	}
	if r.table.set && !r.table.equal(r.lastTable) {
		r.native.SetDescTableGraph(r.table.table, r.table.start, r.table.heapCopy)
		r.lastTable = r.table
	}
	return nil
}

// Draw flushes pending state and draws non-indexed primitives.
// layoutHash is the bound shader's reflected resource-layout hash
// (desc.LayoutSet.Hash), folded into the cached pipeline's structural
// key.
func (r *Recorder) Draw(pass driver.RenderPass, subpass int, layoutHash uint64, vertCount, instCount, baseVert, baseInst int) error {
	if !r.inPass {
		return ErrNotInPass
	}
	if err := r.flushGraphics(pass, subpass, layoutHash); err != nil {
		return err
	}
	r.native.Draw(vertCount, instCount, baseVert, baseInst)
	return nil
}

// DrawIndexed flushes pending state and draws indexed primitives.
func (r *Recorder) DrawIndexed(pass driver.RenderPass, subpass int, layoutHash uint64, idxCount, instCount, baseIdx, vertOff, baseInst int) error {
	if !r.inPass {
		return ErrNotInPass
	}
	if err := r.flushGraphics(pass, subpass, layoutHash); err != nil {
		return err
	}
	r.native.DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst)
	return nil
}

// BeginWork begins compute work, per driver.CmdBuffer.BeginWork.
func (r *Recorder) BeginWork(wait bool) error {
	if r.state != Recording {
		return ErrNotRecording
	}
	r.native.BeginWork(wait)
	r.compute = true
	return nil
}

// EndWork ends compute work.
func (r *Recorder) EndWork() error {
	if !r.compute {
		return newErr("command buffer is not in compute work")
	}
	r.native.EndWork()
	r.compute = false
	return nil
}

// SetComputeShader stages the compute shader function and descriptor
// table used by the next Dispatch, marking the compute pipeline dirty
// only if either differs from what is already bound.
func (r *Recorder) SetComputeShader(fn driver.ShaderFunc, desc driver.DescTable) {
	if fn != r.compFunc || desc != r.compDesc {
		r.compDirty = true
	}
	r.compFunc, r.compDesc = fn, desc
}

// Dispatch flushes the compute pipeline if it changed, then dispatches
// thread groups.
func (r *Recorder) Dispatch(layoutHash uint64, grpCountX, grpCountY, grpCountZ int) error {
	if !r.compute {
		return newErr("command buffer is not in compute work")
	}
	if r.compDirty {
		cs := &driver.CompState{Func: r.compFunc, Desc: r.compDesc}
		h, err := r.cache.ComputePipeline(rescache.ComputeKey{ShaderLayoutHash: layoutHash}, cs)
		if err != nil {
			return fmt.Errorf("%sDispatch: %w", prefix, err)
		}
		if r.curComp != (rescache.Handle[driver.Pipeline]{}) {
			r.curComp.Release()
		}
		r.curComp = h
		r.native.SetPipeline(h.Native())
		r.compDirty = false
	}
	r.native.Dispatch(grpCountX, grpCountY, grpCountZ)
	return nil
}

// BeginQuery records a query-begin command. It fails if the wrapped
// native command buffer has no query support.
func (r *Recorder) BeginQuery(pool driver.QueryPool, index int) error {
	if r.qcb == nil {
		return newErr("native command buffer has no query support")
	}
	r.qcb.BeginQuery(pool, index)
	return nil
}

// EndQuery records a query-end command.
func (r *Recorder) EndQuery(pool driver.QueryPool, index int) error {
	if r.qcb == nil {
		return newErr("native command buffer has no query support")
	}
	r.qcb.EndQuery(pool, index)
	return nil
}

func pipelineKey(s *pipeline.State, layoutHash uint64) rescache.PipelineKey {
	format := s.Format()
	rcFmt := rescache.FramebufferFormat{Color: make([]rescache.ColorFormat, len(format.Color))}
	for i, c := range format.Color {
		rcFmt.Color[i] = rescache.ColorFormat{Pixel: c.Pixel, Samples: c.Samples}
	}
	if format.Depth != nil {
		d := rescache.ColorFormat{Pixel: format.Depth.Pixel, Samples: format.Depth.Samples}
		rcFmt.Depth = &d
	}
	gs := s.GraphState(nil, 0)
	return rescache.PipelineKey{
		ShaderLayoutHash: layoutHash,
		EntryPoint:       s.EntryPoint(),
		Input:            gs.Input,
		Topology:         gs.Topology,
		Raster:           gs.Raster,
		Samples:          gs.Samples,
		DS:               gs.DS,
		Blend:            gs.Blend,
		FBFormatHash:     rcFmt.Hash(),
	}
}
