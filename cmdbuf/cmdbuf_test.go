package cmdbuf

import (
	"testing"

	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/internal/faketest"
	"github.com/rtcore/rtcore/rescache"
	"github.com/rtcore/rtcore/storage"
)

func newTestTarget(t *testing.T, gpu *faketest.GPU) (*storage.ImageView, storage.ImageFormat) {
	t.Helper()
	format := storage.ImageFormat{
		Extent: driver.Dim3D{Width: 64, Height: 64, Depth: 1},
		Pixel:  driver.RGBA8Unorm,
	}
	img, err := storage.NewImageStorage(gpu, storage.Image2D, format, storage.RenderTarget, storage.GpuOnly)
	if err != nil {
		t.Fatalf("NewImageStorage: have %v, want nil", err)
	}
	view, err := storage.NewImageView(img, driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		t.Fatalf("NewImageView: have %v, want nil", err)
	}
	return view, format
}

func newTestPass(t *testing.T, cache *rescache.Cache, format storage.ImageFormat) (rescache.Handle[driver.RenderPass], rescache.Handle[driver.Framebuf]) {
	t.Helper()
	rcFormat := rescache.FramebufferFormat{
		Color: []rescache.ColorFormat{{Pixel: format.Pixel, Samples: format.Samples}},
	}
	pass, err := cache.RenderPass(rcFormat, true, false, false, []storage.ResourceUsage{storage.Undefined}, storage.Undefined)
	if err != nil {
		t.Fatalf("RenderPass: have %v, want nil", err)
	}
	return pass, rescache.Handle[driver.Framebuf]{}
}

func TestBeginEndRoundTrip(t *testing.T) {
	gpu := faketest.NewGPU()
	native, _ := gpu.NewCmdBuffer()
	cache := rescache.New(gpu)
	r := New(native, cache)

	if err := r.Begin(); err != nil {
		t.Fatalf("Begin: have %v, want nil", err)
	}
	if r.State() != Recording {
		t.Fatalf("State: have %v, want Recording", r.State())
	}
	if err := r.End(); err != nil {
		t.Fatalf("End: have %v, want nil", err)
	}
	if r.State() != Executable {
		t.Fatalf("State: have %v, want Executable", r.State())
	}
}

func TestEndWhileInPassFails(t *testing.T) {
	gpu := faketest.NewGPU()
	native, _ := gpu.NewCmdBuffer()
	cache := rescache.New(gpu)
	r := New(native, cache)
	r.Begin()

	view, format := newTestTarget(t, gpu)
	pass, _ := newTestPass(t, cache, format)
	img, err := storage.NewImageStorage(gpu, storage.Image2D, format, storage.RenderTarget, storage.GpuOnly)
	if err != nil {
		t.Fatalf("NewImageStorage: have %v, want nil", err)
	}
	fbView, err := storage.NewImageView(img, driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		t.Fatalf("NewImageView: have %v, want nil", err)
	}
	fb, err := cache.Framebuffer([]driver.ImageView{fbView.Native()}, 64, 64, 1, pass)
	if err != nil {
		t.Fatalf("Framebuffer: have %v, want nil", err)
	}

	if err := r.BeginPass(pass, fb, []ColorAttachment{{View: view}}, nil); err != nil {
		t.Fatalf("BeginPass: have %v, want nil", err)
	}
	if err := r.End(); err != ErrInPass {
		t.Fatalf("End while in pass: have %v, want %v", err, ErrInPass)
	}
}

func TestDrawFailsOutsidePass(t *testing.T) {
	gpu := faketest.NewGPU()
	native, _ := gpu.NewCmdBuffer()
	cache := rescache.New(gpu)
	r := New(native, cache)
	r.Begin()

	if err := r.Draw(nil, 0, 0, 3, 1, 0, 0); err != ErrNotInPass {
		t.Fatalf("Draw outside pass: have %v, want %v", err, ErrNotInPass)
	}
}

func TestDrawFlushesPipelineOnlyOnce(t *testing.T) {
	gpu := faketest.NewGPU()
	native, _ := gpu.NewCmdBuffer()
	cache := rescache.New(gpu)
	r := New(native, cache)
	r.Begin()

	view, format := newTestTarget(t, gpu)
	pass, _ := newTestPass(t, cache, format)
	fb, err := cache.Framebuffer([]driver.ImageView{view.Native()}, 64, 64, 1, pass)
	if err != nil {
		t.Fatalf("Framebuffer: have %v, want nil", err)
	}
	if err := r.BeginPass(pass, fb, []ColorAttachment{{View: view}}, nil); err != nil {
		t.Fatalf("BeginPass: have %v, want nil", err)
	}

	r.Pipeline.SetShader(&faketest.ShaderCode{}, &faketest.ShaderCode{}, "main", nil)
	if err := r.Draw(pass.Native(), 0, 7, 3, 1, 0, 0); err != nil {
		t.Fatalf("Draw: have %v, want nil", err)
	}
	if r.Pipeline.Changed() {
		t.Fatal("Draw: pipeline still dirty after flush")
	}
	if err := r.Draw(pass.Native(), 0, 7, 3, 1, 0, 0); err != nil {
		t.Fatalf("Draw: second call: have %v, want nil", err)
	}
}

func TestDrawWithoutShaderFails(t *testing.T) {
	gpu := faketest.NewGPU()
	native, _ := gpu.NewCmdBuffer()
	cache := rescache.New(gpu)
	r := New(native, cache)
	r.Begin()

	view, format := newTestTarget(t, gpu)
	pass, _ := newTestPass(t, cache, format)
	fb, err := cache.Framebuffer([]driver.ImageView{view.Native()}, 64, 64, 1, pass)
	if err != nil {
		t.Fatalf("Framebuffer: have %v, want nil", err)
	}
	if err := r.BeginPass(pass, fb, []ColorAttachment{{View: view}}, nil); err != nil {
		t.Fatalf("BeginPass: have %v, want nil", err)
	}

	if err := r.Draw(pass.Native(), 0, 0, 3, 1, 0, 0); err != ErrNoShader {
		t.Fatalf("Draw without shader: have %v, want %v", err, ErrNoShader)
	}
}

func TestSetDescTableOnlyFlushesOnChange(t *testing.T) {
	gpu := faketest.NewGPU()
	native, _ := gpu.NewCmdBuffer()
	cache := rescache.New(gpu)
	r := New(native, cache)
	r.Begin()

	view, format := newTestTarget(t, gpu)
	pass, _ := newTestPass(t, cache, format)
	fb, err := cache.Framebuffer([]driver.ImageView{view.Native()}, 64, 64, 1, pass)
	if err != nil {
		t.Fatalf("Framebuffer: have %v, want nil", err)
	}
	if err := r.BeginPass(pass, fb, []ColorAttachment{{View: view}}, nil); err != nil {
		t.Fatalf("BeginPass: have %v, want nil", err)
	}
	r.Pipeline.SetShader(&faketest.ShaderCode{}, &faketest.ShaderCode{}, "main", nil)

	table := &faketest.DescTable{}
	r.SetDescTable(table, 0, []int{0})
	if err := r.Draw(pass.Native(), 0, 0, 3, 1, 0, 0); err != nil {
		t.Fatalf("Draw: have %v, want nil", err)
	}
	if r.lastTable.table != table {
		t.Fatal("SetDescTable: table not applied on first flush")
	}

	r.SetDescTable(table, 0, []int{0})
	prev := r.lastTable
	if err := r.Draw(pass.Native(), 0, 0, 3, 1, 0, 0); err != nil {
		t.Fatalf("Draw: have %v, want nil", err)
	}
	if &r.lastTable.heapCopy[0] != &prev.heapCopy[0] {
		t.Fatal("SetDescTable: identical table re-applied")
	}
}

func TestComputeDispatchRequiresWork(t *testing.T) {
	gpu := faketest.NewGPU()
	native, _ := gpu.NewCmdBuffer()
	cache := rescache.New(gpu)
	r := New(native, cache)
	r.Begin()

	if err := r.Dispatch(0, 1, 1, 1); err == nil {
		t.Fatal("Dispatch outside compute work: have nil, want error")
	}

	if err := r.BeginWork(false); err != nil {
		t.Fatalf("BeginWork: have %v, want nil", err)
	}
	r.SetComputeShader(driver.ShaderFunc{Code: &faketest.ShaderCode{}, Name: "main"}, nil)
	if err := r.Dispatch(1, 1, 1, 1); err != nil {
		t.Fatalf("Dispatch: have %v, want nil", err)
	}
	if err := r.EndWork(); err != nil {
		t.Fatalf("EndWork: have %v, want nil", err)
	}
}

func TestBeginEndQueryWithQuerySupport(t *testing.T) {
	gpu := faketest.NewGPU()
	native, _ := gpu.NewCmdBuffer()
	cache := rescache.New(gpu)
	r := New(native, cache)
	if !r.CanQuery() {
		t.Fatal("CanQuery: have false, want true (faketest.CmdBuffer implements QueryCmdBuffer)")
	}
	r.Begin()
	qp, err := gpu.NewQueryPool(driver.QOcclusion, 1)
	if err != nil {
		t.Fatalf("NewQueryPool: have %v, want nil", err)
	}
	if err := r.BeginQuery(qp, 0); err != nil {
		t.Fatalf("BeginQuery: have %v, want nil", err)
	}
	if err := r.EndQuery(qp, 0); err != nil {
		t.Fatalf("EndQuery: have %v, want nil", err)
	}
}
