package pipeline

import (
	"testing"

	"github.com/rtcore/rtcore/driver"
)

func TestNewIsFullyDirty(t *testing.T) {
	s := New()
	if !s.Changed() {
		t.Fatal("New: Changed:\nhave false\nwant true")
	}
	want := DirtyInput | DirtyTopology | DirtyRaster | DirtySamples |
		DirtyDepthStencil | DirtyBlend | DirtyFormat | DirtyShader
	if s.DirtyBits() != want {
		t.Fatalf("New: DirtyBits:\nhave %b\nwant %b", s.DirtyBits(), want)
	}
}

func TestSetterNoOpDoesNotDirty(t *testing.T) {
	s := New()
	s.MarkUnchanged()
	s.SetDepthStencil(driver.DSState{})
	if s.Changed() {
		t.Fatal("SetDepthStencil: identical value:\nhave dirty\nwant unchanged")
	}
	s.SetDepthStencil(driver.DSState{DepthTest: true})
	if s.DirtyBits() != DirtyDepthStencil {
		t.Fatalf("SetDepthStencil: changed value:\nhave %b\nwant %b", s.DirtyBits(), DirtyDepthStencil)
	}
}

func TestSetTopologyOnlyDirtiesTopology(t *testing.T) {
	s := New()
	s.MarkUnchanged()
	s.SetTopology(driver.TLine)
	if s.DirtyBits() != DirtyTopology {
		t.Fatalf("SetTopology:\nhave %b\nwant %b", s.DirtyBits(), DirtyTopology)
	}
}

func TestAssignPreservesOnlyChangedSubStates(t *testing.T) {
	cur := New()
	cur.MarkUnchanged()

	src := New()
	src.MarkUnchanged()
	src.SetBlend(driver.BlendState{IndependentBlend: true})

	cur.Assign(src)
	if cur.DirtyBits() != DirtyBlend {
		t.Fatalf("Assign: dirty bits:\nhave %b\nwant %b (blend only)", cur.DirtyBits(), DirtyBlend)
	}
}

func TestAssignFromUnchangedSourceLeavesTargetUnchanged(t *testing.T) {
	cur := New()
	cur.MarkUnchanged()

	src := New()
	src.MarkUnchanged()

	cur.Assign(src)
	if cur.Changed() {
		t.Fatal("Assign: identical source:\nhave dirty\nwant unchanged")
	}
}

func TestSetFramebufferFormatComparesDepthByValue(t *testing.T) {
	s := New()
	df := ColorFormat{Pixel: driver.RGBA8Unorm, Samples: 1}
	s.SetFramebufferFormat(FramebufferFormat{Depth: &df})
	s.MarkUnchanged()

	other := df
	s.SetFramebufferFormat(FramebufferFormat{Depth: &other})
	if s.Changed() {
		t.Fatal("SetFramebufferFormat: equal depth via different pointer:\nhave dirty\nwant unchanged")
	}
}

func TestGraphStateReflectsCurrentSubStates(t *testing.T) {
	s := New()
	s.SetTopology(driver.TLnStrip).SetSamples(4)
	gs := s.GraphState(nil, 2)
	if gs.Topology != driver.TLnStrip || gs.Samples != 4 || gs.Subpass != 2 {
		t.Fatalf("GraphState: have %+v", gs)
	}
}
