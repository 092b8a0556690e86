// Package storage implements the resource layer that sits directly on
// top of the driver package: BufferStorage and ImageStorage (GPU
// memory allocations with a tracked usage history), the views and
// samplers derived from them, and BufferObject (a sub-range of a
// BufferStorage with an optional staging path for non-host-visible
// memory).
//
// Every type here is expressed in terms of ResourceUsage, the
// abstract usage vocabulary a caller thinks in ("this buffer is an
// index buffer", "this image is a render target"), and translates it
// down into the driver package's native Usage/Layout/Access/Sync
// values. Nothing above this package should need to import driver's
// low-level enums directly for that purpose.
package storage

import "github.com/rtcore/rtcore/driver"

// ResourceUsage describes how a resource is intended to be used by
// the GPU. It gates both the native usage flags requested at creation
// time (§6.3) and the image layout a barrier transitions a resource
// into (§6.4).
type ResourceUsage int

// Resource usages.
const (
	Undefined ResourceUsage = iota
	PreInitialized
	General
	RenderTarget
	DepthStencil
	ShaderResource
	CopySource
	CopyDestination
	Present
	ShaderWrite
	IndexBuffer
	VertexBuffer
	IndirectBuffer
)

func (u ResourceUsage) String() string {
	switch u {
	case Undefined:
		return "Undefined"
	case PreInitialized:
		return "PreInitialized"
	case General:
		return "General"
	case RenderTarget:
		return "RenderTarget"
	case DepthStencil:
		return "DepthStencil"
	case ShaderResource:
		return "ShaderResource"
	case CopySource:
		return "CopySource"
	case CopyDestination:
		return "CopyDestination"
	case Present:
		return "Present"
	case ShaderWrite:
		return "ShaderWrite"
	case IndexBuffer:
		return "IndexBuffer"
	case VertexBuffer:
		return "VertexBuffer"
	case IndirectBuffer:
		return "IndirectBuffer"
	default:
		return "ResourceUsage(?)"
	}
}

// MemoryUsage describes the memory domain a resource is allocated
// from, and thus who can access it directly.
type MemoryUsage int

// Memory usages.
const (
	Unknown MemoryUsage = iota
	CpuOnly
	GpuOnly
	CpuToGpu
	GpuToCpu
)

// Mappable reports whether memory allocated with usage m can be
// mapped for direct CPU access. This is global invariant 3: a
// BufferStorage is mappable if and only if its memory usage is
// neither GpuOnly nor Unknown.
func (m MemoryUsage) Mappable() bool {
	return m != GpuOnly && m != Unknown
}

// bufferUsage translates a ResourceUsage into the driver.Usage flags
// requested when creating a buffer, per §6.3. Every buffer always
// requests copy source and destination, since staging uploads and
// readbacks must always be possible.
func bufferUsage(u ResourceUsage) driver.Usage {
	base := driver.UCopySrc | driver.UCopyDst
	switch u {
	case ShaderResource:
		return base | driver.UShaderRead | driver.UShaderConst
	case ShaderWrite:
		return base | driver.UShaderRead | driver.UShaderWrite
	case IndexBuffer:
		return base | driver.UIndexData
	case VertexBuffer:
		return base | driver.UVertexData
	case IndirectBuffer:
		return base | driver.UIndirectData
	case General:
		return base | driver.UShaderRead | driver.UShaderWrite | driver.UShaderConst |
			driver.UIndexData | driver.UVertexData | driver.UIndirectData
	default:
		return base
	}
}

// imageUsage translates a ResourceUsage into the driver.Usage flags
// requested when creating an image, per §6.3.
func imageUsage(u ResourceUsage) driver.Usage {
	base := driver.UCopySrc | driver.UCopyDst
	switch u {
	case ShaderResource:
		return base | driver.UShaderSample
	case ShaderWrite:
		return base | driver.UShaderRead | driver.UShaderWrite
	case RenderTarget, Present:
		return base | driver.URenderTarget
	case DepthStencil:
		return base | driver.URenderTarget
	case General:
		return base | driver.UShaderSample | driver.UShaderRead | driver.UShaderWrite | driver.URenderTarget
	default:
		return base
	}
}

// barrierInfo is one row of the canonical image layout/barrier table
// (§6.4): the native layout a ResourceUsage corresponds to, and the
// access/sync scopes a transition into or out of it must wait on.
type barrierInfo struct {
	layout     driver.Layout
	access     driver.Access
	syncBefore driver.Sync
	syncAfter  driver.Sync
}

var barrierTable = map[ResourceUsage]barrierInfo{
	Undefined:       {driver.LUndefined, driver.ANone, driver.SAll, driver.SAll},
	PreInitialized:  {driver.LPreinit, driver.ANone, driver.SNone, driver.SAll},
	General:         {driver.LCommon, driver.ANone, driver.SAll, driver.SAll},
	RenderTarget:    {driver.LColorTarget, driver.AColorRead | driver.AColorWrite, driver.SColorOutput, driver.SColorOutput},
	DepthStencil:    {driver.LDSTarget, driver.ADSRead | driver.ADSWrite, driver.SDSOutput, driver.SDSOutput},
	ShaderResource:  {driver.LShaderRead, driver.AShaderRead, driver.SFragmentShading | driver.SComputeShading, driver.SFragmentShading | driver.SComputeShading},
	ShaderWrite:     {driver.LCommon, driver.AShaderWrite, driver.SFragmentShading | driver.SComputeShading, driver.SFragmentShading | driver.SComputeShading},
	CopySource:      {driver.LCopySrc, driver.ACopyRead, driver.SCopy, driver.SCopy},
	CopyDestination: {driver.LCopyDst, driver.ACopyWrite, driver.SCopy, driver.SCopy},
	Present:         {driver.LPresent, driver.ANone, driver.SAll, driver.SAll},
}

// layoutFor returns the native image layout a ResourceUsage maps to.
func layoutFor(u ResourceUsage) driver.Layout {
	if info, ok := barrierTable[u]; ok {
		return info.layout
	}
	return driver.LUndefined
}

// transitionBarrier builds the Barrier half of a driver.Transition
// moving a resource from before to after.
func transitionBarrier(before, after ResourceUsage) driver.Barrier {
	bi, ok := barrierTable[before]
	if !ok {
		bi = barrierTable[Undefined]
	}
	ai, ok := barrierTable[after]
	if !ok {
		ai = barrierTable[Undefined]
	}
	return driver.Barrier{
		SyncBefore:   bi.syncAfter,
		SyncAfter:    ai.syncBefore,
		AccessBefore: bi.access,
		AccessAfter:  ai.access,
	}
}
