// Package render implements the rendering context façade (C12): the
// single stateful object an application drives through push/pop/set
// calls on every OpenGL-fixed-function-style axis — blending, cull,
// depth/stencil, viewport, scissor, polygon mode, polygon offset, line
// width, point size, primitive restart, alpha test, material, texture
// bindings, framebuffer, shader, and the model-view/projection
// matrices — and which turns an accumulated stack of those axes into
// the minimal set of cmdbuf/rstate calls a draw actually needs.
//
// Context never touches pipeline sub-states directly; it only ever
// calls through to pipeline.State (owned by the wrapped
// cmdbuf.Recorder) and rstate.State, leaving the bookkeeping of what
// changed to those two packages.
package render

import (
	"errors"
	"fmt"
	"log"
	"unsafe"

	"github.com/rtcore/rtcore/binding"
	"github.com/rtcore/rtcore/cmdbuf"
	"github.com/rtcore/rtcore/desc"
	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/linear"
	"github.com/rtcore/rtcore/rescache"
	"github.com/rtcore/rtcore/rstate"
	"github.com/rtcore/rtcore/storage"
)

const prefix = "render: "

func newErr(reason string) error { return errors.New(prefix + reason) }

// Canonical binding numbers of the uniform descriptor set every
// Context installs its apply-engine output at.
const (
	uniformSet      = 0
	cameraBinding   = 0
	instanceBinding = 1
	materialBinding = 2
	lightsBinding   = 3
)

// Canonical binding numbers a texture/image unit resolves to within
// its caller-chosen descriptor set.
const (
	textureBindingNr = 0
	imageBindingNr   = 1
)

// AlphaTest is the façade's alpha-test configuration. Only CLess is
// fully supported, per the source engine's fixed-function alpha test;
// any other comparison function is accepted but logged and treated as
// CLess, matching the degenerate behavior the deprecated Parameters
// overloads are documented to have.
type AlphaTest struct {
	Enabled   bool
	Cmp       driver.CmpFunc
	Threshold float32
}

// Shader is the shader configuration bound by PushShader/SetShader.
// LayoutHash identifies the shader's reflected resource layout (see
// desc.LayoutSet.Hash), threaded into the cached pipeline's key and
// into rstate's per-shader apply snapshot.
type Shader struct {
	VertCode, FragCode driver.ShaderCode
	Entry              string
	Desc               driver.DescTable
	Layout             desc.LayoutSet
}

// FBO is the render target configuration bound by PushFBO/SetFBO.
type FBO struct {
	Pass   rescache.Handle[driver.RenderPass]
	FB     rescache.Handle[driver.Framebuf]
	Color  []cmdbuf.ColorAttachment
	Depth  *cmdbuf.DepthAttachment
	Width  int
	Height int
}

// texKey identifies a texture or image unit by its (unit, descriptor
// set) pair, the key a caller pushes/pops independently for each
// combination it uses.
type texKey struct{ unit, set int }

// Context is the rendering context façade. The zero Context is not
// ready for use; call New.
type Context struct {
	gpu   driver.GPU
	cache *rescache.Cache
	pool  *desc.Pool
	rec   *cmdbuf.Recorder
	state *rstate.State

	viewport stack[[]driver.Viewport]
	scissor  stack[[]driver.Scissor]
	raster   stack[driver.RasterState]
	ds       stack[driver.DSState]
	blend    stack[driver.BlendState]
	ptSize   stack[float32]
	primRst  stack[bool]
	alpha    stack[AlphaTest]
	material stack[rstate.Snapshot]
	fbo      stack[FBO]
	shader   stack[Shader]
	proj     stack[linear.M4]
	modelv   stack[linear.M4]

	textures map[texKey]*stack[binding.TextureBinding]
	images   map[texKey]*stack[binding.TextureBinding]

	cameraBuf, instanceBuf, materialBuf, lightsBuf *storage.BufferObject
}

// New wraps rec for façade-driven recording, pulling shared pipeline
// and descriptor-set caching from cache and pool. gpu is used to
// allocate the uniform buffers applyChanges writes into.
func New(gpu driver.GPU, cache *rescache.Cache, pool *desc.Pool, rec *cmdbuf.Recorder) *Context {
	var identity linear.M4
	identity.I()
	return &Context{
		gpu:   gpu,
		cache: cache,
		pool:  pool,
		rec:   rec,
		state: rstate.New(),

		viewport: newStack[[]driver.Viewport]("viewport", nil),
		scissor:  newStack[[]driver.Scissor]("scissor", nil),
		raster:   newStack("raster", driver.RasterState{Cull: driver.CBack, Fill: driver.FFill}),
		ds:       newStack("depth-stencil", driver.DSState{DepthTest: true, DepthWrite: true, DepthCmp: driver.CLess}),
		blend:    newStack("blend", driver.BlendState{}),
		ptSize:   newStack[float32]("point-size", 1),
		primRst:  newStack("primitive-restart", false),
		alpha:    newStack("alpha-test", AlphaTest{Cmp: driver.CLess}),
		material: newStack("material", rstate.NewMaterialData().Snapshot()),
		fbo:      newStack("fbo", FBO{}),
		shader:   newStack("shader", Shader{}),
		proj:     newStack("projection", identity),
		modelv:   newStack("model-view", identity),

		textures: make(map[texKey]*stack[binding.TextureBinding]),
		images:   make(map[texKey]*stack[binding.TextureBinding]),
	}
}

// State exposes the Context's rstate.State, for a caller that needs
// direct access to lights or global uniforms rather than going
// through a push/pop axis.
func (c *Context) State() *rstate.State { return c.state }

// Recorder exposes the Context's wrapped cmdbuf.Recorder.
func (c *Context) Recorder() *cmdbuf.Recorder { return c.rec }

// --- Viewport/Scissor ---

func (c *Context) PushViewport(v []driver.Viewport) { c.viewport.push(v) }
func (c *Context) PopViewport()                     { c.viewport.pop() }
func (c *Context) SetViewport(v []driver.Viewport)  { c.viewport.set(v) }

func (c *Context) PushScissor(s []driver.Scissor) { c.scissor.push(s) }
func (c *Context) PopScissor()                    { c.scissor.pop() }
func (c *Context) SetScissor(s []driver.Scissor)  { c.scissor.set(s) }

// --- Cull, polygon mode, polygon offset (RasterState) ---

func (c *Context) PushRaster(r driver.RasterState) { c.raster.push(r) }
func (c *Context) PopRaster()                      { c.raster.pop() }
func (c *Context) SetRaster(r driver.RasterState)  { c.raster.set(r) }

// SetCull replaces only the raster state's cull mode, leaving fill
// mode and polygon offset parameters untouched.
func (c *Context) SetCull(mode driver.CullMode) {
	r := c.raster.get()
	r.Cull = mode
	c.raster.set(r)
}

// SetPolygonMode replaces only the raster state's fill mode.
func (c *Context) SetPolygonMode(fill driver.FillMode) {
	r := c.raster.get()
	r.Fill = fill
	c.raster.set(r)
}

// SetPolygonOffset replaces only the raster state's depth-bias
// parameters.
func (c *Context) SetPolygonOffset(enabled bool, value, slope, clamp float32) {
	r := c.raster.get()
	r.DepthBias, r.BiasValue, r.BiasSlope, r.BiasClamp = enabled, value, slope, clamp
	c.raster.set(r)
}

// --- Depth/stencil ---

func (c *Context) PushDepthStencil(ds driver.DSState) { c.ds.push(ds) }
func (c *Context) PopDepthStencil()                   { c.ds.pop() }
func (c *Context) SetDepthStencil(ds driver.DSState)  { c.ds.set(ds) }

// --- Blend ---

func (c *Context) PushBlend(b driver.BlendState) { c.blend.push(b) }
func (c *Context) PopBlend()                     { c.blend.pop() }
func (c *Context) SetBlend(b driver.BlendState)  { c.blend.set(b) }

// --- Line width / point size ---

func (c *Context) PushPointSize(s float32) { c.ptSize.push(s) }
func (c *Context) PopPointSize()           { c.ptSize.pop() }
func (c *Context) SetPointSize(s float32)  { c.ptSize.set(s) }

// --- Primitive restart ---

func (c *Context) PushPrimitiveRestart(on bool) { c.primRst.push(on) }
func (c *Context) PopPrimitiveRestart()         { c.primRst.pop() }
func (c *Context) SetPrimitiveRestart(on bool)  { c.primRst.set(on) }

// --- Alpha test ---

func (c *Context) PushAlphaTest(a AlphaTest) { c.alpha.push(normalizeAlphaTest(a)) }
func (c *Context) PopAlphaTest()             { c.alpha.pop() }
func (c *Context) SetAlphaTest(a AlphaTest)  { c.alpha.set(normalizeAlphaTest(a)) }

// SetAlphaTestParameters is the deprecated fixed-function-style
// overload: it translates a legacy (enabled, comparison, reference)
// triple into the modern AlphaTest state. Only CLess is meaningful to
// the source engine's alpha-test shader path; any other comparison
// function is accepted, logged, and applied as if it were CLess.
func (c *Context) SetAlphaTestParameters(enabled bool, cmp driver.CmpFunc, ref float32) {
	c.SetAlphaTest(AlphaTest{Enabled: enabled, Cmp: cmp, Threshold: ref})
}

func normalizeAlphaTest(a AlphaTest) AlphaTest {
	if a.Enabled && a.Cmp != driver.CLess {
		log.Printf(prefix+"alpha test: comparison func %v not supported, using CLess", a.Cmp)
		a.Cmp = driver.CLess
	}
	return a
}

// --- Material ---

func (c *Context) PushMaterial() { c.material.push(c.state.Material.Snapshot()) }

func (c *Context) PopMaterial() {
	c.material.pop()
	c.state.Material.Restore(c.material.get())
}

// SetMaterial replaces the current material without pushing.
func (c *Context) SetMaterial(s rstate.Snapshot) {
	c.material.set(s)
	c.state.Material.Restore(s)
}

// --- FBO ---

func (c *Context) PushFBO(f FBO) { c.fbo.push(f) }
func (c *Context) PopFBO()       { c.fbo.pop() }
func (c *Context) SetFBO(f FBO) { c.fbo.set(f) }

// --- Shader ---

func (c *Context) PushShader(s Shader) { c.shader.push(s) }
func (c *Context) PopShader()          { c.shader.pop() }
func (c *Context) SetShader(s Shader) { c.shader.set(s) }

// --- Projection / model-view ---

func (c *Context) PushProjection(m linear.M4) { c.proj.push(m) }
func (c *Context) PopProjection()             { c.proj.pop() }
func (c *Context) SetProjection(m linear.M4)  { c.proj.set(m); c.state.Camera.SetToClipping(&m) }

func (c *Context) PushModelView(m linear.M4) { c.modelv.push(m) }

func (c *Context) PopModelView() {
	c.modelv.pop()
	m := c.modelv.get()
	c.state.Instance.SetModelToCamera(&m)
}

func (c *Context) SetModelView(m linear.M4) {
	c.modelv.set(m)
	c.state.Instance.SetModelToCamera(&m)
}

// --- Texture / image bindings ---

func (c *Context) textureStack(unit, set int) *stack[binding.TextureBinding] {
	k := texKey{unit, set}
	s, ok := c.textures[k]
	if !ok {
		ns := newStack("texture", binding.TextureBinding{})
		s = &ns
		c.textures[k] = s
	}
	return s
}

func (c *Context) imageStack(unit, set int) *stack[binding.TextureBinding] {
	k := texKey{unit, set}
	s, ok := c.images[k]
	if !ok {
		ns := newStack("image", binding.TextureBinding{})
		s = &ns
		c.images[k] = s
	}
	return s
}

// PushTexture binds v at (unit, set), saving whatever was bound there
// before for a matching PopTexture.
func (c *Context) PushTexture(unit, set int, v binding.TextureBinding) {
	c.textureStack(unit, set).push(v)
	c.rec.Bindings().Set(set).BindTexture(textureBindingNr, unit, v)
}

// PopTexture restores the texture previously bound at (unit, set).
func (c *Context) PopTexture(unit, set int) {
	s := c.textureStack(unit, set)
	s.pop()
	c.rec.Bindings().Set(set).BindTexture(textureBindingNr, unit, s.get())
}

// SetTexture replaces the texture bound at (unit, set) without
// pushing.
func (c *Context) SetTexture(unit, set int, v binding.TextureBinding) {
	c.textureStack(unit, set).set(v)
	c.rec.Bindings().Set(set).BindTexture(textureBindingNr, unit, v)
}

// PushImage binds a storage image at (unit, set).
func (c *Context) PushImage(unit, set int, v binding.TextureBinding) {
	c.imageStack(unit, set).push(v)
	c.rec.Bindings().Set(set).BindTexture(imageBindingNr, unit, v)
}

// PopImage restores the image previously bound at (unit, set).
func (c *Context) PopImage(unit, set int) {
	s := c.imageStack(unit, set)
	s.pop()
	c.rec.Bindings().Set(set).BindTexture(imageBindingNr, unit, s.get())
}

// SetImage replaces the image bound at (unit, set) without pushing.
func (c *Context) SetImage(unit, set int, v binding.TextureBinding) {
	c.imageStack(unit, set).set(v)
	c.rec.Bindings().Set(set).BindTexture(imageBindingNr, unit, v)
}

// layoutAsBytes reinterprets a fixed-size rstate layout array as a
// byte slice suitable for BufferObject.Upload, without reaching into
// rstate's unexported fields: the layout types are plain exported
// float32 arrays, addressable from any package.
func layoutAsBytes(p unsafe.Pointer, nfloat int) []byte {
	return unsafe.Slice((*byte)(p), nfloat*4)
}

func (c *Context) ensureUniformBuf(buf **storage.BufferObject, size int64) (*storage.BufferObject, error) {
	if *buf != nil && (*buf).Size() >= size {
		return *buf, nil
	}
	if *buf != nil {
		(*buf).Destroy()
	}
	b, err := storage.NewBufferObject(c.gpu, size, storage.ShaderResource, storage.CpuToGpu, false)
	if err != nil {
		return nil, err
	}
	*buf = b
	return b, nil
}

// uploadGroup uploads data into the uniform buffer tracked by buf,
// (re)allocating it if needed, and binds it at nr in the uniform
// descriptor set.
func (c *Context) uploadGroup(buf **storage.BufferObject, nr int, data []byte) error {
	b, err := c.ensureUniformBuf(buf, int64(len(data)))
	if err != nil {
		return err
	}
	if _, err := b.Upload(c.gpu, data, 0, nil); err != nil {
		return err
	}
	c.rec.Bindings().Set(uniformSet).BindBuffer(nr, 0, binding.BufferBinding{Buffer: b})
	return nil
}

// applyChanges diffs every rstate data group against the bound
// shader's last-applied snapshot, uploads whatever changed into this
// Context's owned uniform buffers, and rebuilds the native descriptor
// table if any binding set was marked dirty since the last call. It
// is called by Draw, DrawIndexed and Dispatch, forced by BeginFrame,
// and called once more by Flush/Present.
func (c *Context) applyChanges(forced bool) error {
	sh := c.shader.get()
	w := c.state.Apply(sh.Layout.Hash(), forced)

	if w.Camera != nil {
		if err := c.uploadGroup(&c.cameraBuf, cameraBinding, layoutAsBytes(unsafe.Pointer(w.Camera), len(w.Camera))); err != nil {
			return fmt.Errorf("%sapplyChanges: camera: %w", prefix, err)
		}
	}
	if w.Instance != nil {
		if err := c.uploadGroup(&c.instanceBuf, instanceBinding, layoutAsBytes(unsafe.Pointer(w.Instance), len(w.Instance))); err != nil {
			return fmt.Errorf("%sapplyChanges: instance: %w", prefix, err)
		}
	}
	if w.Material != nil {
		if err := c.uploadGroup(&c.materialBuf, materialBinding, layoutAsBytes(unsafe.Pointer(w.Material), len(w.Material))); err != nil {
			return fmt.Errorf("%sapplyChanges: material: %w", prefix, err)
		}
	}
	if w.Lights != nil {
		n := len(w.Lights)
		data := layoutAsBytes(unsafe.Pointer(&w.Lights[0]), n*len(w.Lights[0]))
		if err := c.uploadGroup(&c.lightsBuf, lightsBinding, data); err != nil {
			return fmt.Errorf("%sapplyChanges: lights: %w", prefix, err)
		}
	}

	if dirty := c.rec.Bindings().DirtySets(); len(dirty) > 0 {
		if err := c.rebuildDescTable(sh); err != nil {
			return fmt.Errorf("%sapplyChanges: %w", prefix, err)
		}
		c.rec.Bindings().ClearDirty()
	}

	c.rec.Pipeline.SetRaster(c.raster.get()).
		SetDepthStencil(c.ds.get()).
		SetBlend(c.blend.get()).
		SetShader(sh.VertCode, sh.FragCode, sh.Entry, sh.Desc)

	if vp := c.viewport.get(); vp != nil {
		c.rec.Native().SetViewport(vp)
	}
	if sc := c.scissor.get(); sc != nil {
		c.rec.Native().SetScissor(sc)
	}
	return nil
}

// rebuildDescTable requests a fresh copy of the uniform descriptor
// set (uniformSet), keyed by sh.Layout and filled by setWrites, and
// installs a cached native descriptor table over that one heap. It
// requests no other set, whichever sets the binding state reports
// dirty, so texture and image bindings in other sets are not written
// into the table.
func (c *Context) rebuildDescTable(sh Shader) error {
	set, err := c.pool.RequestSet(sh.Layout, c.setWrites(uniformSet))
	if err != nil {
		return err
	}
	heap, copyIdx := set.Heap()

	table, err := c.cache.DescTable([]driver.DescHeap{heap}, []uint64{sh.Layout.Hash()})
	if err != nil {
		return err
	}
	c.rec.SetDescTable(table.Native(), 0, []int{copyIdx})
	return nil
}

// setWrites collects the buffer writes accumulated in the Recorder's
// binding state for descriptor set n at the four uniform binding
// numbers (camera, instance, material, lights) into a desc.SetWrites
// ready for desc.Pool.RequestSet. Texture and sampler bindings are not
// collected.
func (c *Context) setWrites(n int) desc.SetWrites {
	s := c.rec.Bindings().Set(n)
	var w desc.SetWrites
	for _, nr := range []int{cameraBinding, instanceBinding, materialBinding, lightsBinding} {
		b, err := s.Buffer(nr, 0)
		if err != nil {
			continue
		}
		w.Buffers = append(w.Buffers, desc.BufferWrite{
			Nr:      nr,
			Buffers: []driver.Buffer{b.Buffer.Storage().Native()},
			Offsets: []int64{b.Buffer.Offset()},
			Sizes:   []int64{b.Buffer.Size()},
		})
	}
	return w
}

// Draw applies pending state and records a non-indexed draw call.
func (c *Context) Draw(subpass, vertCount, instCount, baseVert, baseInst int) error {
	if err := c.applyChanges(false); err != nil {
		return err
	}
	return c.rec.Draw(c.fbo.get().Pass.Native(), subpass, c.shader.get().Layout.Hash(), vertCount, instCount, baseVert, baseInst)
}

// DrawIndexed applies pending state and records an indexed draw call.
func (c *Context) DrawIndexed(subpass, idxCount, instCount, baseIdx, vertOff, baseInst int) error {
	if err := c.applyChanges(false); err != nil {
		return err
	}
	return c.rec.DrawIndexed(c.fbo.get().Pass.Native(), subpass, c.shader.get().Layout.Hash(), idxCount, instCount, baseIdx, vertOff, baseInst)
}

// Dispatch applies pending state and records a compute dispatch.
func (c *Context) Dispatch(grpX, grpY, grpZ int) error {
	if err := c.applyChanges(false); err != nil {
		return err
	}
	return c.rec.Dispatch(c.shader.get().Layout.Hash(), grpX, grpY, grpZ)
}

// BeginFrame begins recording and opens the render pass described by
// the current FBO, forcing every pipeline and apply-engine state to
// be (re-)written on the first draw of the frame.
func (c *Context) BeginFrame() error {
	if err := c.rec.Begin(); err != nil {
		return err
	}
	f := c.fbo.get()
	if err := c.rec.BeginPass(f.Pass, f.FB, f.Color, f.Depth); err != nil {
		return err
	}
	return c.applyChanges(true)
}

// Flush ends the current render pass and command buffer recording,
// applying pending state one last time first.
func (c *Context) Flush() error {
	if err := c.applyChanges(false); err != nil {
		return err
	}
	if err := c.rec.EndPass(); err != nil {
		return err
	}
	return c.rec.End()
}

// Present flushes the current frame for submission. Callers still
// submit the wrapped Recorder's native command buffer through
// driver.GPU.Commit; Present only guarantees every façade-visible
// state change has been applied and recorded first.
func (c *Context) Present() error { return c.Flush() }
