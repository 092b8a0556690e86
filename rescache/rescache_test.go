package rescache

import (
	"testing"

	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/internal/faketest"
	"github.com/rtcore/rtcore/storage"
)

func testFormat() FramebufferFormat {
	return FramebufferFormat{
		Color: []ColorFormat{{Pixel: driver.RGBA8Unorm, Samples: 1}},
	}
}

func testPipelineKey(fmtHash uint64) PipelineKey {
	return PipelineKey{
		ShaderLayoutHash: 42,
		EntryPoint:       "main",
		Topology:         driver.TTriangle,
		Samples:          1,
		FBFormatHash:     fmtHash,
	}
}

func TestPipelineReusesHandleForSameKey(t *testing.T) {
	gpu := faketest.NewGPU()
	c := New(gpu)
	key := testPipelineKey(testFormat().Hash())
	state := &driver.GraphState{Topology: driver.TTriangle, Samples: 1}

	h1, err := c.Pipeline(key, state)
	if err != nil {
		t.Fatalf("Pipeline: first:\nhave %v\nwant nil", err)
	}
	h2, err := c.Pipeline(key, state)
	if err != nil {
		t.Fatalf("Pipeline: second:\nhave %v\nwant nil", err)
	}
	if h1.Native() != h2.Native() {
		t.Fatal("Pipeline: same key:\nhave distinct native handles\nwant shared")
	}
}

func TestPipelineKeyDistinguishesTopology(t *testing.T) {
	fmtHash := testFormat().Hash()
	a := testPipelineKey(fmtHash)
	b := a
	b.Topology = driver.TLine
	if a.Hash() == b.Hash() {
		t.Fatal("PipelineKey.Hash: differing topology:\nhave equal hashes\nwant different")
	}
}

func TestPipelineAndComputeKeysDoNotCollideByConstruction(t *testing.T) {
	gpu := faketest.NewGPU()
	c := New(gpu)
	pk := testPipelineKey(testFormat().Hash())
	ck := ComputeKey{ShaderLayoutHash: pk.ShaderLayoutHash}

	gs := &driver.GraphState{Topology: driver.TTriangle, Samples: 1}
	cs := &driver.CompState{}

	gh, err := c.Pipeline(pk, gs)
	if err != nil {
		t.Fatalf("Pipeline:\nhave %v\nwant nil", err)
	}
	ch, err := c.ComputePipeline(ck, cs)
	if err != nil {
		t.Fatalf("ComputePipeline:\nhave %v\nwant nil", err)
	}
	if pk.Hash() == ck.Hash() {
		t.Fatal("PipelineKey/ComputeKey hashes collide; cache entries would alias")
	}
	if gh.Native() == ch.Native() {
		t.Fatal("Pipeline/ComputePipeline: distinct keys:\nhave shared native handle\nwant distinct")
	}
}

func TestDescTableReusesHandleForSameHeapSequence(t *testing.T) {
	gpu := faketest.NewGPU()
	c := New(gpu)
	heap, err := gpu.NewDescHeap([]driver.Descriptor{{Type: driver.DConstant, Stages: driver.SVertex, Nr: 0, Len: 1}})
	if err != nil {
		t.Fatalf("NewDescHeap:\nhave %v\nwant nil", err)
	}
	heaps := []driver.DescHeap{heap}
	hashes := []uint64{7}

	h1, err := c.DescTable(heaps, hashes)
	if err != nil {
		t.Fatalf("DescTable: first:\nhave %v\nwant nil", err)
	}
	h2, err := c.DescTable(heaps, hashes)
	if err != nil {
		t.Fatalf("DescTable: second:\nhave %v\nwant nil", err)
	}
	if h1.Native() != h2.Native() {
		t.Fatal("DescTable: same set hashes:\nhave distinct native handles\nwant shared")
	}
}

func TestRenderPassLoadOpFollowsClearAndPriorUsage(t *testing.T) {
	gpu := faketest.NewGPU()
	c := New(gpu)
	format := testFormat()

	// Not cleared, no prior usage: LDontCare, cacheable distinctly
	// from the cleared variant.
	h1, err := c.RenderPass(format, false, false, false, []storage.ResourceUsage{storage.Undefined}, storage.Undefined)
	if err != nil {
		t.Fatalf("RenderPass: first:\nhave %v\nwant nil", err)
	}
	h2, err := c.RenderPass(format, true, false, false, []storage.ResourceUsage{storage.Undefined}, storage.Undefined)
	if err != nil {
		t.Fatalf("RenderPass: second:\nhave %v\nwant nil", err)
	}
	if h1.Native() == h2.Native() {
		t.Fatal("RenderPass: clearColor true vs false:\nhave shared native handle\nwant distinct")
	}

	h3, err := c.RenderPass(format, false, false, false, []storage.ResourceUsage{storage.Undefined}, storage.Undefined)
	if err != nil {
		t.Fatalf("RenderPass: third:\nhave %v\nwant nil", err)
	}
	if h1.Native() != h3.Native() {
		t.Fatal("RenderPass: identical key:\nhave distinct native handles\nwant shared")
	}
}

func TestFramebufferReusesHandleForSameViewsAndPass(t *testing.T) {
	gpu := faketest.NewGPU()
	c := New(gpu)
	format := testFormat()
	pass, err := c.RenderPass(format, true, false, false, []storage.ResourceUsage{storage.Undefined}, storage.Undefined)
	if err != nil {
		t.Fatalf("RenderPass:\nhave %v\nwant nil", err)
	}

	img, err := storage.NewImageStorage(gpu, storage.Image2D, storage.ImageFormat{
		Extent: driver.Dim3D{Width: 64, Height: 64, Depth: 1},
		Pixel:  driver.RGBA8Unorm,
	}, storage.RenderTarget, storage.GpuOnly)
	if err != nil {
		t.Fatalf("NewImageStorage:\nhave %v\nwant nil", err)
	}
	view, err := storage.NewImageView(img, driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		t.Fatalf("NewImageView:\nhave %v\nwant nil", err)
	}
	views := []driver.ImageView{view.Native()}

	f1, err := c.Framebuffer(views, 64, 64, 1, pass)
	if err != nil {
		t.Fatalf("Framebuffer: first:\nhave %v\nwant nil", err)
	}
	f2, err := c.Framebuffer(views, 64, 64, 1, pass)
	if err != nil {
		t.Fatalf("Framebuffer: second:\nhave %v\nwant nil", err)
	}
	if f1.Native() != f2.Native() {
		t.Fatal("Framebuffer: same views/pass:\nhave distinct native handles\nwant shared")
	}
}

func TestClearAllowsAcquiredHandleToOutlive(t *testing.T) {
	gpu := faketest.NewGPU()
	c := New(gpu)
	key := testPipelineKey(testFormat().Hash())
	state := &driver.GraphState{Topology: driver.TTriangle, Samples: 1}

	h, err := c.Pipeline(key, state)
	if err != nil {
		t.Fatalf("Pipeline:\nhave %v\nwant nil", err)
	}
	c.Clear()

	p, ok := h.Native().(*faketest.Pipeline)
	if !ok {
		t.Fatalf("Native: type:\nhave %T\nwant *faketest.Pipeline", h.Native())
	}
	if p.Destroyed() {
		t.Fatal("Clear: handle still referenced:\nhave native destroyed\nwant alive until Release")
	}
	h.Release()
	if !p.Destroyed() {
		t.Fatal("Release after Clear: last reference gone:\nhave native still alive\nwant destroyed")
	}
}

func TestRequestAfterClearCreatesFreshEntry(t *testing.T) {
	gpu := faketest.NewGPU()
	c := New(gpu)
	key := testPipelineKey(testFormat().Hash())
	state := &driver.GraphState{Topology: driver.TTriangle, Samples: 1}

	h1, err := c.Pipeline(key, state)
	if err != nil {
		t.Fatalf("Pipeline: first:\nhave %v\nwant nil", err)
	}
	h1.Release()
	c.Clear()

	h2, err := c.Pipeline(key, state)
	if err != nil {
		t.Fatalf("Pipeline: after clear:\nhave %v\nwant nil", err)
	}
	if h1.Native() == h2.Native() {
		t.Fatal("Pipeline: after Clear:\nhave same native handle\nwant freshly created")
	}
}
