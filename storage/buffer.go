package storage

import (
	"errors"
	"fmt"
	"log"

	"github.com/rtcore/rtcore/driver"
)

const bufPrefix = "storage: buffer: "

func bufErr(reason string) error { return errors.New(bufPrefix + reason) }

// ErrRange is returned when a requested byte range does not fit
// inside a BufferStorage.
var ErrRange = bufErr("range out of bounds")

// ErrNotMappable is returned by Upload when the destination storage's
// memory usage does not permit direct CPU writes (GpuOnly/Unknown,
// see MemoryUsage.Mappable).
var ErrNotMappable = bufErr("not host-visible; upload through a staging BufferObject")

// Fence lets a caller wait for GPU work to complete before reusing a
// range of a persistently-mapped buffer. It is satisfied by the
// completion channel pattern used throughout driver: a Fence is done
// once its channel has delivered a driver.WorkItem.
//
// Upload on a persistently-mapped BufferStorage accepts a Fence so
// callers can serialize against outstanding GPU reads of the range
// being overwritten; passing nil skips the wait and logs a warning,
// since there is otherwise no way to detect the hazard.
type Fence interface {
	Wait()
}

// chanFence adapts a driver.WorkItem completion channel into a Fence.
type chanFence struct{ ch <-chan *driver.WorkItem }

// NewFence wraps a GPU.Commit completion channel as a Fence.
func NewFence(ch <-chan *driver.WorkItem) Fence { return &chanFence{ch} }

func (f *chanFence) Wait() { <-f.ch }

// BufferStorage is a GPU buffer allocation with a fixed size, created
// for a particular ResourceUsage and MemoryUsage. Equal
// (size, resourceUsage, memoryUsage, persistent) configurations are
// logically interchangeable; neither this package nor rescache pools
// or shares allocations across that equality.
type BufferStorage struct {
	native driver.Buffer

	size          int64
	resourceUsage ResourceUsage
	memoryUsage   MemoryUsage
	persistent    bool

	lastUsage ResourceUsage
}

// NewBufferStorage allocates a new BufferStorage of the given size,
// for the given resource usage and memory usage. persistent requests
// that the underlying memory stay mapped for the storage's lifetime;
// it is only legal when memoryUsage.Mappable().
func NewBufferStorage(gpu driver.GPU, size int64, resourceUsage ResourceUsage, memoryUsage MemoryUsage, persistent bool) (*BufferStorage, error) {
	if size <= 0 {
		return nil, bufErr("size must be positive")
	}
	visible := memoryUsage.Mappable()
	if persistent && !visible {
		return nil, bufErr("persistent mapping requires host-visible memory")
	}
	buf, err := gpu.NewBuffer(size, visible, bufferUsage(resourceUsage))
	if err != nil {
		return nil, fmt.Errorf(bufPrefix+"%w", err)
	}
	return &BufferStorage{
		native:        buf,
		size:          size,
		resourceUsage: resourceUsage,
		memoryUsage:   memoryUsage,
		persistent:    persistent,
		lastUsage:     Undefined,
	}, nil
}

// Native returns the underlying driver.Buffer.
func (s *BufferStorage) Native() driver.Buffer { return s.native }

// Size returns the storage's size in bytes.
func (s *BufferStorage) Size() int64 { return s.size }

// ResourceUsage returns the usage the storage was created for.
func (s *BufferStorage) ResourceUsage() ResourceUsage { return s.resourceUsage }

// MemoryUsage returns the memory domain the storage was allocated
// from.
func (s *BufferStorage) MemoryUsage() MemoryUsage { return s.memoryUsage }

// Persistent reports whether the storage is kept mapped for its
// entire lifetime.
func (s *BufferStorage) Persistent() bool { return s.persistent }

// Mappable reports whether the storage can be written to directly by
// the CPU. Global invariant 3.
func (s *BufferStorage) Mappable() bool { return s.memoryUsage.Mappable() }

// LastUsage returns the most recently recorded ResourceUsage of this
// storage, as tracked by the last barrier a recorder emitted for it.
func (s *BufferStorage) LastUsage() ResourceUsage { return s.lastUsage }

// SetLastUsage records the ResourceUsage a just-recorded barrier
// transitioned this storage into. Called by the command recorder, not
// by application code.
func (s *BufferStorage) SetLastUsage(u ResourceUsage) { s.lastUsage = u }

// Upload writes data into the storage at offset, either directly (if
// persistent) or by copying into the mapped range. fence, if non-nil,
// is waited on first to avoid overwriting a range the GPU may still
// be reading; passing nil skips the wait and logs a warning, since a
// persistently-mapped buffer gives storage no other way to detect the
// hazard.
func (s *BufferStorage) Upload(data []byte, offset int64, fence Fence) error {
	if offset < 0 || offset+int64(len(data)) > s.size {
		return ErrRange
	}
	if !s.Mappable() {
		return ErrNotMappable
	}
	if s.persistent {
		if fence != nil {
			fence.Wait()
		} else {
			log.Printf(bufPrefix+"Upload: persistent buffer written without a fence")
		}
	}
	copy(s.native.Bytes()[offset:], data)
	return nil
}

// Destroy releases the native buffer. Callers must ensure no
// in-flight command buffer still references it.
func (s *BufferStorage) Destroy() {
	if s.native != nil {
		s.native.Destroy()
		s.native = nil
	}
}

// BufferObject is a sub-range, [Offset, Offset+Size), of a
// BufferStorage. Most bind points and copy commands operate on a
// BufferObject rather than a raw BufferStorage, so that several
// logical buffers can share one allocation.
type BufferObject struct {
	storage *BufferStorage
	offset  int64
	size    int64

	// staging is lazily created the first time Upload needs a
	// non-mappable destination; it is a CpuOnly, CopySource
	// BufferStorage sized to the largest upload seen so far.
	staging *BufferStorage
}

// NewBufferObject allocates a fresh BufferStorage of the given size
// and wraps the whole of it in a BufferObject.
func NewBufferObject(gpu driver.GPU, size int64, resourceUsage ResourceUsage, memoryUsage MemoryUsage, persistent bool) (*BufferObject, error) {
	st, err := NewBufferStorage(gpu, size, resourceUsage, memoryUsage, persistent)
	if err != nil {
		return nil, err
	}
	return &BufferObject{storage: st, offset: 0, size: size}, nil
}

// WrapBufferStorage creates a BufferObject over an existing storage's
// [offset, offset+size) range. size == 0 means "to the end of the
// storage". Range checks are mandatory: offset+size must not exceed
// storage.Size().
func WrapBufferStorage(storage *BufferStorage, offset, size int64) (*BufferObject, error) {
	if offset < 0 || offset > storage.size {
		return nil, ErrRange
	}
	if size == 0 {
		size = storage.size - offset
	}
	if offset+size > storage.size {
		return nil, ErrRange
	}
	return &BufferObject{storage: storage, offset: offset, size: size}, nil
}

// Storage returns the BufferStorage this object is a range of.
func (b *BufferObject) Storage() *BufferStorage { return b.storage }

// Offset returns the object's byte offset into its storage.
func (b *BufferObject) Offset() int64 { return b.offset }

// Size returns the object's size in bytes.
func (b *BufferObject) Size() int64 { return b.size }

// Upload writes data (which must fit within b's range) at offset
// bytes into the object's range. If the backing storage is
// host-visible, the write lands directly and Upload returns a nil
// *StageCopy. Otherwise the write goes through a lazily allocated
// staging buffer and Upload returns a non-nil *StageCopy describing
// the buffer-to-buffer copy the caller (normally the command
// recorder) must still record to finish moving the data into place.
func (b *BufferObject) Upload(gpu driver.GPU, data []byte, offset int64, fence Fence) (*StageCopy, error) {
	if offset < 0 || offset+int64(len(data)) > b.size {
		return nil, ErrRange
	}
	if b.storage.Mappable() {
		return nil, b.storage.Upload(data, b.offset+offset, fence)
	}
	stg, err := b.stagingFor(gpu, int64(len(data)))
	if err != nil {
		return nil, err
	}
	if err := stg.Upload(data, 0, fence); err != nil {
		return nil, err
	}
	return &StageCopy{From: stg, To: b.storage, Size: int64(len(data)), ToOffset: b.offset + offset}, nil
}

// StageCopy describes the buffer-to-buffer copy a caller must record
// to move a staged upload into its final, non-mappable destination.
// It is returned by Upload's staging path so the command recorder can
// emit the matching driver.BufferCopy and the destination barrier.
type StageCopy struct {
	From *BufferStorage
	To   *BufferStorage
	Size int64
	// ToOffset is the destination offset, b.offset+offset, of the
	// original Upload call.
	ToOffset int64
}

// stagingFor lazily creates or grows the object's staging storage to
// hold at least n bytes, and returns it.
func (b *BufferObject) stagingFor(gpu driver.GPU, n int64) (*BufferStorage, error) {
	if b.staging != nil && b.staging.Size() >= n {
		return b.staging, nil
	}
	if b.staging != nil {
		b.staging.Destroy()
		b.staging = nil
	}
	st, err := NewBufferStorage(gpu, n, CopySource, CpuOnly, false)
	if err != nil {
		return nil, err
	}
	b.staging = st
	return st, nil
}

// Destroy releases the object's staging storage, if any. It does not
// destroy the wrapped BufferStorage, since BufferObject does not own
// it exclusively: callers that allocated it via NewBufferObject must
// destroy the storage themselves.
func (b *BufferObject) Destroy() {
	if b.staging != nil {
		b.staging.Destroy()
		b.staging = nil
	}
}
