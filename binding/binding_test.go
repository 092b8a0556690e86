package binding

import (
	"errors"
	"testing"

	"github.com/rtcore/rtcore/storage"
)

func TestAccessorsNeverCreateEntries(t *testing.T) {
	st := NewState()
	_, err := st.Set(0).Buffer(1, 0)
	if !errors.Is(err, ErrUnboundDescriptor) {
		t.Fatalf("Buffer: unbound nr:\nhave %v\nwant %v", err, ErrUnboundDescriptor)
	}
	if len(st.sets) != 1 {
		t.Fatal("Set: accessor on missing set:\nhave no Set created\nwant Set(0) lazily created by State.Set")
	}
	if _, ok := st.sets[0].bindings[1]; ok {
		t.Fatal("Buffer: miss on binding nr:\nhave Binding entry created\nwant none")
	}
}

func TestBindBufferGrowsAndMarksDirty(t *testing.T) {
	st := NewState()
	buf := &storage.BufferObject{}
	st.Set(0).BindBuffer(3, 2, BufferBinding{Buffer: buf})

	got, err := st.Set(0).Buffer(3, 2)
	if err != nil {
		t.Fatalf("Buffer: have %v, want nil", err)
	}
	if got.Buffer != buf {
		t.Fatal("Buffer: wrong value returned")
	}
	if _, err := st.Set(0).Buffer(3, 0); !errors.Is(err, ErrUnboundDescriptor) {
		t.Fatalf("Buffer: unset element below the grown one:\nhave %v\nwant %v", err, ErrUnboundDescriptor)
	}
	if !st.Set(0).Dirty() {
		t.Fatal("Set: Dirty:\nhave false\nwant true after BindBuffer")
	}
}

func TestBindTextureViewPreservesSampler(t *testing.T) {
	st := NewState()
	smp := &storage.Sampler{}
	view1 := &storage.ImageView{}
	view2 := &storage.ImageView{}

	s := st.Set(0)
	s.BindTexture(5, 0, TextureBinding{View: view1, Sampler: smp, Usage: storage.ShaderResource})
	s.clearDirty()

	s.BindTextureView(5, 0, view2, storage.ShaderResource)
	got, err := s.Texture(5, 0)
	if err != nil {
		t.Fatalf("Texture: have %v, want nil", err)
	}
	if got.View != view2 {
		t.Fatal("BindTextureView: view not replaced")
	}
	if got.Sampler != smp {
		t.Fatal("BindTextureView: sampler not preserved")
	}
	if !s.Dirty() {
		t.Fatal("BindTextureView: Dirty:\nhave false\nwant true")
	}
}

func TestDirtySetsAndClearDirty(t *testing.T) {
	st := NewState()
	st.Set(0).BindBuffer(0, 0, BufferBinding{Buffer: &storage.BufferObject{}})
	st.Set(2).BindBuffer(0, 0, BufferBinding{Buffer: &storage.BufferObject{}})

	dirty := st.DirtySets()
	if len(dirty) != 2 {
		t.Fatalf("DirtySets: have %d entries, want 2", len(dirty))
	}

	st.ClearDirty()
	if len(st.DirtySets()) != 0 {
		t.Fatal("ClearDirty: DirtySets still non-empty")
	}
}

func TestUnboundSetNumberReportsErrorWithoutCreatingBindings(t *testing.T) {
	st := NewState()
	if _, err := st.Set(9).Texture(0, 0); !errors.Is(err, ErrUnboundDescriptor) {
		t.Fatalf("Texture: have %v, want %v", err, ErrUnboundDescriptor)
	}
}
