// Package rstate implements the rendering state apply engine: the
// non-pipeline, GPU-visible data a draw call depends on (camera and
// instance transforms, material reflectance terms, lights, and a
// registry of ad hoc named uniforms), plus the logic that diffs this
// data against what was last written for a given shader and emits
// only the layouts that actually changed.
//
// State never touches pipeline sub-states (driver.GraphState,
// pipeline.State); selecting a pipeline is the façade's job, not the
// apply engine's.
package rstate

// maxLights bounds how many lights State.Apply packs into a single
// LightLayout array per call.
const maxLights = 64

// State aggregates every non-pipeline data group tracked for a
// rendering context, plus the per-shader "last applied" bookkeeping
// that lets Apply write only what changed.
type State struct {
	Camera   *CameraData
	Instance *InstanceData
	Material *MaterialData
	Lights   *LightCollection
	Uniforms *GlobalUniforms

	snapshots map[uint64]*snapshot
}

// New returns a State with every data group at its default value and
// no shader snapshots recorded.
func New() *State {
	return &State{
		Camera:    NewCameraData(),
		Instance:  NewInstanceData(),
		Material:  NewMaterialData(),
		Lights:    NewLightCollection(),
		Uniforms:  NewGlobalUniforms(),
		snapshots: make(map[uint64]*snapshot),
	}
}

// snapshot records, for one shader key, the generation of each data
// group as of the last Apply call. seen distinguishes "never applied
// to this shader" from "applied when every generation happened to be
// 0", forcing a first call to write every group regardless of forced.
type snapshot struct {
	seen       bool
	cameraGen  uint32
	instGen    uint32
	matGen     uint32
	lightGen   uint32
	uniformGen uint32
}

// Written reports which groups Apply actually wrote, and their data.
// A nil field means nothing was written for that group: it was
// unchanged or, for Lights and Uniforms, it is empty.
type Written struct {
	Camera   *CameraLayout
	Instance *InstanceLayout
	Material *MaterialLayout
	Lights   []LightLayout
	Uniforms []Uniform
}

// Apply diffs every data group against the snapshot last recorded for
// key and returns the layouts that need to be (re-)uploaded. key
// identifies the target shader/pipeline, typically its reflected
// resource-layout hash; a key seen for the first time always has
// every group written, as if forced were true. Whenever any named
// uniform was added or changed since the last Apply for this key (or
// the call is forced or first), Uniforms lists the full registry; it
// does not single out the uniforms that changed.
func (s *State) Apply(key uint64, forced bool) Written {
	snap, ok := s.snapshots[key]
	if !ok {
		snap = &snapshot{}
		s.snapshots[key] = snap
	}
	first := !snap.seen
	snap.seen = true

	var w Written

	if forced || first || s.Camera.Gen() != snap.cameraGen {
		l := &CameraLayout{}
		s.Camera.writeLayout(l)
		w.Camera = l
		snap.cameraGen = s.Camera.Gen()
	}

	if forced || first || s.Instance.Gen() != snap.instGen {
		l := &InstanceLayout{}
		s.Instance.writeLayout(l)
		w.Instance = l
		snap.instGen = s.Instance.Gen()
	}

	if forced || first || s.Material.Gen() != snap.matGen {
		l := &MaterialLayout{}
		s.Material.writeLayout(l)
		w.Material = l
		snap.matGen = s.Material.Gen()
	}

	if forced || first || s.Lights.Gen() != snap.lightGen {
		n := s.Lights.Count()
		if n > maxLights {
			n = maxLights
		}
		if n > 0 {
			layouts := make([]LightLayout, n)
			s.Lights.writeLayout(layouts)
			w.Lights = layouts
		}
		snap.lightGen = s.Lights.Gen()
	}

	if forced || first || s.Uniforms.Gen() != snap.uniformGen {
		for _, u := range s.Uniforms.values {
			w.Uniforms = append(w.Uniforms, u)
		}
		snap.uniformGen = s.Uniforms.Gen()
	}

	return w
}

// Forget discards the last-applied snapshot for key, so the next
// Apply call for it behaves as if key had never been seen. Used when
// a shader is destroyed and its slot in the pipeline cache may later
// be reused by an unrelated shader with the same key collision odds
// as any other rescache entry.
func (s *State) Forget(key uint64) {
	delete(s.snapshots, key)
}
