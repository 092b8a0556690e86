package rstate

import "github.com/rtcore/rtcore/linear"

// CameraData holds a camera's clipping and world transforms.
// worldToCamera is derived from toWorld whenever it changes, rather
// than being settable directly.
type CameraData struct {
	toClipping linear.M4
	toWorld    linear.M4
	worldToCam linear.M4
	gen        uint32
}

// NewCameraData returns a CameraData with both matrices set to
// identity.
func NewCameraData() *CameraData {
	c := &CameraData{}
	c.toClipping.I()
	c.toWorld.I()
	c.worldToCam.I()
	return c
}

// SetToClipping replaces the camera-to-clipping (projection) matrix.
func (c *CameraData) SetToClipping(m *linear.M4) {
	c.toClipping = *m
	c.gen++
}

// SetToWorld replaces the camera-to-world matrix, recomputing the
// derived world-to-camera matrix.
func (c *CameraData) SetToWorld(m *linear.M4) {
	c.toWorld = *m
	c.worldToCam.Invert(m)
	c.gen++
}

// ToClipping returns the camera-to-clipping matrix.
func (c *CameraData) ToClipping() linear.M4 { return c.toClipping }

// ToWorld returns the camera-to-world matrix.
func (c *CameraData) ToWorld() linear.M4 { return c.toWorld }

// WorldToCamera returns the derived world-to-camera matrix.
func (c *CameraData) WorldToCamera() linear.M4 { return c.worldToCam }

// Gen returns the camera's current generation. It increments on every
// mutation and never resets.
func (c *CameraData) Gen() uint32 { return c.gen }

// writeLayout writes the current camera state into l.
func (c *CameraData) writeLayout(l *CameraLayout) {
	l.setToClipping(&c.toClipping)
	l.setToWorld(&c.toWorld)
	l.setWorldToCamera(&c.worldToCam)
}
