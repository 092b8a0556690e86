package rstate

import (
	"testing"

	"github.com/rtcore/rtcore/linear"
)

func TestApplyFirstCallWritesEveryGroup(t *testing.T) {
	s := New()
	w := s.Apply(1, false)
	if w.Camera == nil || w.Instance == nil || w.Material == nil || w.Uniforms != nil {
		t.Fatalf("Apply: first call have %+v, want Camera/Instance/Material non-nil, Uniforms nil (empty registry)", w)
	}
}

func TestApplySecondCallWritesNothingWhenUnchanged(t *testing.T) {
	s := New()
	s.Apply(1, false)
	w := s.Apply(1, false)
	if w.Camera != nil || w.Instance != nil || w.Material != nil || w.Lights != nil || w.Uniforms != nil {
		t.Fatalf("Apply: have %+v, want every field nil", w)
	}
}

func TestApplyForcedRewritesEverything(t *testing.T) {
	s := New()
	s.Apply(1, false)
	w := s.Apply(1, true)
	if w.Camera == nil || w.Instance == nil || w.Material == nil {
		t.Fatalf("Apply: forced have %+v, want every group written", w)
	}
}

func TestApplyOnlyWritesChangedGroup(t *testing.T) {
	s := New()
	s.Apply(1, false)

	var m linear.M4
	m.I()
	s.Camera.SetToClipping(&m)

	w := s.Apply(1, false)
	if w.Camera == nil {
		t.Fatal("Apply: have Camera nil, want non-nil after SetToClipping")
	}
	if w.Instance != nil || w.Material != nil {
		t.Fatalf("Apply: have Instance=%v Material=%v, want both nil", w.Instance, w.Material)
	}
}

func TestApplyTracksIndependentSnapshotsPerKey(t *testing.T) {
	s := New()
	s.Apply(1, false)

	w := s.Apply(2, false)
	if w.Camera == nil || w.Instance == nil || w.Material == nil {
		t.Fatalf("Apply: new key have %+v, want every group written", w)
	}
}

func TestCameraWorldToCameraIsDerived(t *testing.T) {
	c := NewCameraData()
	var m linear.M4
	m.I()
	m[3] = linear.V4{1, 2, 3, 1}
	c.SetToWorld(&m)

	var want linear.M4
	want.Invert(&m)
	if got := c.WorldToCamera(); got != want {
		t.Fatalf("WorldToCamera: have %v, want %v", got, want)
	}
}

func TestMaterialSetNoOpDoesNotBumpGen(t *testing.T) {
	m := NewMaterialData()
	gen := m.Gen()
	m.SetDiffuse(linear.V4{1, 1, 1, 1})
	if m.Gen() != gen {
		t.Fatalf("SetDiffuse same value: have gen %d, want %d (unchanged)", m.Gen(), gen)
	}
	m.SetDiffuse(linear.V4{0, 0, 0, 1})
	if m.Gen() == gen {
		t.Fatal("SetDiffuse new value: gen did not change")
	}
}

func TestLightCollectionAddRemoveReusesSlot(t *testing.T) {
	lc := NewLightCollection()
	h1 := lc.AddLight(Light{Kind: LightPoint, Intensity: 1})
	if lc.Count() != 1 {
		t.Fatalf("Count: have %d, want 1", lc.Count())
	}
	if err := lc.RemoveLight(h1); err != nil {
		t.Fatalf("RemoveLight: have %v, want nil", err)
	}
	if lc.Count() != 0 {
		t.Fatalf("Count: have %d, want 0", lc.Count())
	}
	h2 := lc.AddLight(Light{Kind: LightSpot, Intensity: 2})
	if h2 != h1 {
		t.Fatalf("AddLight: have handle %d, want reused handle %d", h2, h1)
	}
}

func TestLightCollectionRemoveUnknownHandleFails(t *testing.T) {
	lc := NewLightCollection()
	if err := lc.RemoveLight(LightHandle(99)); err != ErrBadLightHandle {
		t.Fatalf("RemoveLight: have %v, want %v", err, ErrBadLightHandle)
	}
	if err := lc.RemoveLight(0); err != ErrBadLightHandle {
		t.Fatalf("RemoveLight(0): have %v, want %v", err, ErrBadLightHandle)
	}
}

func TestLightCollectionWriteLayoutPacksContiguously(t *testing.T) {
	lc := NewLightCollection()
	h1 := lc.AddLight(Light{Kind: LightPoint, Intensity: 1})
	lc.AddLight(Light{Kind: LightSpot, Intensity: 2})
	lc.RemoveLight(h1)
	lc.AddLight(Light{Kind: LightDirectional, Intensity: 3})

	out := make([]LightLayout, lc.Count())
	n := lc.writeLayout(out)
	if n != 2 {
		t.Fatalf("writeLayout: have %d entries, want 2", n)
	}
	for _, l := range out[:n] {
		if l[1] == 0 {
			t.Fatal("writeLayout: have intensity 0, want a written value")
		}
	}
}

func TestGlobalUniformsSetNoOpDoesNotBumpGen(t *testing.T) {
	u := NewGlobalUniforms()
	u.Set("a", []byte{1, 2, 3})
	gen := u.Gen()
	u.Set("a", []byte{1, 2, 3})
	if u.Gen() != gen {
		t.Fatalf("Set same value: have gen %d, want %d (unchanged)", u.Gen(), gen)
	}
	u.Set("a", []byte{1, 2, 4})
	if u.Gen() == gen {
		t.Fatal("Set new value: gen did not change")
	}
}

func TestGlobalUniformsGetMissingReportsFalse(t *testing.T) {
	u := NewGlobalUniforms()
	if _, ok := u.Get("missing"); ok {
		t.Fatal("Get: have ok true for unset name, want false")
	}
}
