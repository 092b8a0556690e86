package rstate

import "github.com/rtcore/rtcore/linear"

// MaterialData holds a Phong-style material's reflectance terms and
// alpha-test configuration. Shininess is packed into Specular's alpha
// component rather than carried as a separate field, matching how
// MaterialLayout writes it into a single vec4 uniform.
type MaterialData struct {
	ambient, diffuse, specular linear.V4
	emission                   linear.V3
	shading                    Shading
	alphaMask                  bool
	alphaThreshold             float32
	gen                        uint32
}

// NewMaterialData returns a MaterialData with opaque white reflectance
// terms, no emission, Phong shading and alpha masking disabled.
func NewMaterialData() *MaterialData {
	return &MaterialData{
		ambient:  linear.V4{1, 1, 1, 1},
		diffuse:  linear.V4{1, 1, 1, 1},
		specular: linear.V4{1, 1, 1, 32},
	}
}

// SetAmbient replaces the ambient color.
func (m *MaterialData) SetAmbient(c linear.V4) {
	if c != m.ambient {
		m.ambient, m.gen = c, m.gen+1
	}
}

// SetDiffuse replaces the diffuse color.
func (m *MaterialData) SetDiffuse(c linear.V4) {
	if c != m.diffuse {
		m.diffuse, m.gen = c, m.gen+1
	}
}

// SetSpecular replaces the specular color and shininess exponent
// (carried in c.a).
func (m *MaterialData) SetSpecular(c linear.V4) {
	if c != m.specular {
		m.specular, m.gen = c, m.gen+1
	}
}

// SetEmission replaces the emission color.
func (m *MaterialData) SetEmission(c linear.V3) {
	if c != m.emission {
		m.emission, m.gen = c, m.gen+1
	}
}

// SetShading replaces the shading model.
func (m *MaterialData) SetShading(s Shading) {
	if s != m.shading {
		m.shading, m.gen = s, m.gen+1
	}
}

// SetAlphaMask enables or disables alpha masking and its threshold.
// Threshold is ignored when on is false.
func (m *MaterialData) SetAlphaMask(on bool, threshold float32) {
	if on != m.alphaMask || (on && threshold != m.alphaThreshold) {
		m.alphaMask, m.alphaThreshold, m.gen = on, threshold, m.gen+1
	}
}

// Gen returns the material's current generation. It increments on
// every effective Set call and never resets.
func (m *MaterialData) Gen() uint32 { return m.gen }

// Snapshot is a value copy of a MaterialData's fields, for a caller
// that needs to save and later restore a material without reaching
// into unexported state — the façade's pushMaterial/popMaterial use
// this to back their stack.
type Snapshot struct {
	Ambient, Diffuse, Specular linear.V4
	Emission                   linear.V3
	Shading                    Shading
	AlphaMask                  bool
	AlphaThreshold             float32
}

// Snapshot returns a value copy of m's current fields.
func (m *MaterialData) Snapshot() Snapshot {
	return Snapshot{
		Ambient:        m.ambient,
		Diffuse:        m.diffuse,
		Specular:       m.specular,
		Emission:       m.emission,
		Shading:        m.shading,
		AlphaMask:      m.alphaMask,
		AlphaThreshold: m.alphaThreshold,
	}
}

// Restore overwrites m's fields from a previously taken Snapshot.
func (m *MaterialData) Restore(s Snapshot) {
	m.SetAmbient(s.Ambient)
	m.SetDiffuse(s.Diffuse)
	m.SetSpecular(s.Specular)
	m.SetEmission(s.Emission)
	m.SetShading(s.Shading)
	m.SetAlphaMask(s.AlphaMask, s.AlphaThreshold)
}

func (m *MaterialData) writeLayout(l *MaterialLayout) {
	l.setAmbient(&m.ambient)
	l.setDiffuse(&m.diffuse)
	l.setSpecular(&m.specular)
	l.setEmission(&m.emission)
	l.setShading(m.shading)
	l.setAlphaMask(m.alphaMask)
	l.setAlphaThreshold(m.alphaThreshold)
}
