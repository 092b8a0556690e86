// Data as written to shader uniform buffers.
//
// The fixed-size float32 arrays defined here mirror exactly what gets
// uploaded as a uniform block; a Layout's Set* methods are the only
// sanctioned way to populate one. Values set through linear.V*/M*
// types keep that type's natural component order, so the shader-side
// struct declares the matching vecN/matN members at the same offsets.
package rstate

import (
	"unsafe"

	"github.com/rtcore/rtcore/linear"
)

func copyM4(dst []float32, m *linear.M4) {
	copy(dst, unsafe.Slice((*float32)(unsafe.Pointer(m)), 16))
}

func copyV3(dst []float32, v *linear.V3) { copy(dst, v[:]) }
func copyV4(dst []float32, v *linear.V4) { copy(dst, v[:]) }

// CameraLayout is the layout of per-camera uniform data:
//
//	[0:16]  | camera-to-clipping matrix (projection)
//	[16:32] | camera-to-world matrix
//	[32:48] | world-to-camera matrix (derived, the inverse of [16:32])
type CameraLayout [48]float32

func (l *CameraLayout) setToClipping(m *linear.M4)  { copyM4(l[0:16], m) }
func (l *CameraLayout) setToWorld(m *linear.M4)     { copyM4(l[16:32], m) }
func (l *CameraLayout) setWorldToCamera(m *linear.M4) { copyM4(l[32:48], m) }

// InstanceLayout is the layout of per-instance uniform data:
//
//	[0:16] | model-to-camera matrix
//	[16]   | point size
//	[17:20] | (unused)
type InstanceLayout [20]float32

func (l *InstanceLayout) setModelToCamera(m *linear.M4) { copyM4(l[0:16], m) }
func (l *InstanceLayout) setPointSize(s float32)        { l[16] = s }

// Shading models a MaterialLayout may select.
type Shading int32

// Shading models.
const (
	Phong Shading = iota
	Shadeless
)

// MaterialLayout is the layout of per-material uniform data:
//
//	[0:4]   | ambient color (rgba)
//	[4:8]   | diffuse color (rgba)
//	[8:12]  | specular color (rgb), shininess packed in .a
//	[12:15] | emission color (rgb)
//	[15]    | alpha threshold
//	[16]    | shading model
//	[17]    | alpha-mask enabled (0 or 1)
//	[18:20] | (unused)
type MaterialLayout [20]float32

func (l *MaterialLayout) setAmbient(c *linear.V4)  { copyV4(l[0:4], c) }
func (l *MaterialLayout) setDiffuse(c *linear.V4)  { copyV4(l[4:8], c) }
func (l *MaterialLayout) setSpecular(c *linear.V4) { copyV4(l[8:12], c) }
func (l *MaterialLayout) setEmission(c *linear.V3) { copyV3(l[12:15], c) }
func (l *MaterialLayout) setAlphaThreshold(t float32) { l[15] = t }
func (l *MaterialLayout) setShading(s Shading)        { l[16] = float32(s) }
func (l *MaterialLayout) setAlphaMask(on bool) {
	if on {
		l[17] = 1
	} else {
		l[17] = 0
	}
}

// LightKind identifies the geometry a Light uses to illuminate a
// scene.
type LightKind int32

// Light kinds.
const (
	LightPoint LightKind = iota
	LightDirectional
	LightSpot
)

// LightLayout is the layout of a single light's uniform data:
//
//	[0]     | kind
//	[1]     | intensity
//	[2]     | cone angle (LightSpot only)
//	[3]     | (unused)
//	[4:7]   | position (LightPoint, LightSpot)
//	[7]     | (unused)
//	[8:11]  | direction (LightDirectional, LightSpot)
//	[11:16] | (unused)
type LightLayout [16]float32

func (l *LightLayout) setKind(k LightKind)       { l[0] = float32(k) }
func (l *LightLayout) setIntensity(i float32)    { l[1] = i }
func (l *LightLayout) setConeAngle(a float32)    { l[2] = a }
func (l *LightLayout) setPosition(p *linear.V3)  { copyV3(l[4:7], p) }
func (l *LightLayout) setDirection(d *linear.V3) { copyV3(l[8:11], d) }
