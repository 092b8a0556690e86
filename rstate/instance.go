package rstate

import "github.com/rtcore/rtcore/linear"

// InstanceData holds the per-draw transform and point size of the
// instance being rendered. Like the other groups, it tracks a
// monotonic generation counter that the apply engine compares against
// its per-shader snapshot; every setter call bumps it, even one that
// stores an unchanged value.
type InstanceData struct {
	modelToCam linear.M4
	pointSize  float32
	gen        uint32
}

// NewInstanceData returns an InstanceData with an identity transform
// and a point size of 1.
func NewInstanceData() *InstanceData {
	i := &InstanceData{pointSize: 1}
	i.modelToCam.I()
	return i
}

// SetModelToCamera replaces the model-to-camera matrix.
func (i *InstanceData) SetModelToCamera(m *linear.M4) {
	i.modelToCam = *m
	i.gen++
}

// SetPointSize replaces the rasterized point size.
func (i *InstanceData) SetPointSize(s float32) {
	i.pointSize = s
	i.gen++
}

// ModelToCamera returns the model-to-camera matrix.
func (i *InstanceData) ModelToCamera() linear.M4 { return i.modelToCam }

// PointSize returns the rasterized point size.
func (i *InstanceData) PointSize() float32 { return i.pointSize }

// Gen returns the instance's current generation. It increments on
// every mutation and never resets.
func (i *InstanceData) Gen() uint32 { return i.gen }

func (i *InstanceData) writeLayout(l *InstanceLayout) {
	l.setModelToCamera(&i.modelToCam)
	l.setPointSize(i.pointSize)
}
