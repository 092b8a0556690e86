package storage

import (
	"testing"

	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/internal/faketest"
)

func newTestImage2D(t *testing.T, layers int) *ImageStorage {
	t.Helper()
	gpu := faketest.NewGPU()
	format := ImageFormat{
		Extent: driver.Dim3D{Width: 64, Height: 64, Depth: 1},
		Pixel:  driver.RGBA8Unorm,
		Levels: 1,
		Layers: layers,
	}
	st, err := NewImageStorage(gpu, Image2D, format, ShaderResource, GpuOnly)
	if err != nil {
		t.Fatalf("NewImageStorage:\nhave %v\nwant nil", err)
	}
	return st
}

func TestNewImageStorageInitialUsageIsUndefined(t *testing.T) {
	st := newTestImage2D(t, 1)
	if u := st.LastUsage(); u != Undefined {
		t.Fatalf("LastUsage:\nhave %v\nwant %v", u, Undefined)
	}
}

func TestImageStorageTransitionUpdatesUsage(t *testing.T) {
	st := newTestImage2D(t, 1)
	cb := &faketest.CmdBuffer{}
	cb.Begin()
	cb.BeginBlit(false)
	st.Transition(cb, 0, 1, ShaderResource)
	cb.EndBlit()
	cb.End()

	if u := st.LayerUsage(0); u != ShaderResource {
		t.Fatalf("LayerUsage after transition:\nhave %v\nwant %v", u, ShaderResource)
	}
}

func TestImageStorageTransitionUpdatesEveryLayer(t *testing.T) {
	st := newTestImage2D(t, 4)
	cb := &faketest.CmdBuffer{}
	cb.Begin()
	st.Transition(cb, 0, 4, ShaderResource)
	for i := 0; i < 4; i++ {
		if u := st.LayerUsage(i); u != ShaderResource {
			t.Fatalf("LayerUsage(%d):\nhave %v\nwant %v", i, u, ShaderResource)
		}
	}
}

func TestImageStorageLayerUsagePanicsWhilePending(t *testing.T) {
	st := newTestImage2D(t, 1)
	st.setPending(0)
	defer func() {
		if recover() == nil {
			t.Fatal("LayerUsage: while pending:\nhave no panic\nwant panic")
		}
	}()
	st.LayerUsage(0)
}

func TestNewImageViewRejectsIncompatibleType(t *testing.T) {
	st := newTestImage2D(t, 1)
	// A Cube view requires exactly 6 layers; this image only has 1.
	if _, err := NewImageView(st, driver.IViewCube, 0, 1, 0, 1); err != ErrIncompatibleView {
		t.Fatalf("NewImageView: incompatible cube view:\nhave %v\nwant %v", err, ErrIncompatibleView)
	}
}

func TestNewImageViewAcceptsFullRange2D(t *testing.T) {
	st := newTestImage2D(t, 1)
	v, err := NewImageView(st, driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		t.Fatalf("NewImageView:\nhave %v\nwant nil", err)
	}
	if v.Native().Image() != st.Native() {
		t.Fatal("NewImageView: view's image does not match its storage")
	}
}

func TestNewImageViewCubeArrayRequiresMultipleOfSix(t *testing.T) {
	st := newTestImage2D(t, 12)
	if _, err := NewImageView(st, driver.IViewCubeArray, 0, 12, 0, 1); err != nil {
		t.Fatalf("NewImageView: 12-layer cube array:\nhave %v\nwant nil", err)
	}
	if _, err := NewImageView(st, driver.IViewCubeArray, 0, 7, 0, 1); err == nil {
		t.Fatal("NewImageView: 7-layer cube array:\nhave nil error\nwant ErrIncompatibleView")
	}
}

func TestNewImageViewRejectsOutOfRange(t *testing.T) {
	st := newTestImage2D(t, 2)
	if _, err := NewImageView(st, driver.IView2DArray, 0, 3, 0, 1); err != ErrIncompatibleView {
		t.Fatalf("NewImageView: layer range overflow:\nhave %v\nwant %v", err, ErrIncompatibleView)
	}
}
