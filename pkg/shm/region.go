package shm

import (
	"fmt"
	"io"
	"unsafe"

	internalshm "github.com/srediag/shmregion/internal/shm"
)

// Origin records which path of Open produced a Region.
type Origin int

const (
	// OriginCreated means this process created the shared object.
	OriginCreated Origin = iota
	// OriginAttached means the object already existed.
	OriginAttached
)

func (o Origin) String() string {
	if o == OriginCreated {
		return "created"
	}
	return "attached"
}

// Ownership says whether tearing down a holder also destroys the shared object.
type Ownership int

const (
	// OwnershipShared holders never destroy the shared object. Every Region is shared.
	OwnershipShared Ownership = iota
	// OwnershipExclusive holders remove the object when they stop; see lifecycle.Holder.
	OwnershipExclusive
)

func (o Ownership) String() string {
	if o == OwnershipExclusive {
		return "exclusive"
	}
	return "shared"
}

// Region is one attachment of the shared memory object. Its base address is fixed
// at construction and every offset is relative to it. A Region must not be used
// after the Handle holding it is released.
type Region struct {
	mapping   *internalshm.MappedRegion
	base      unsafe.Pointer
	capacity  uint32
	origin    Origin
	ownership Ownership
	link      string
	tel       *telemetry
}

func newRegion(mapping *internalshm.MappedRegion, origin Origin, config *Config, tel *telemetry) (*Region, error) {
	if len(mapping.Addr) < config.Capacity {
		return nil, fmt.Errorf("%w: mapped %d bytes, want %d", ErrSizeMismatch, len(mapping.Addr), config.Capacity)
	}
	base := unsafe.Pointer(unsafe.SliceData(mapping.Addr))
	if !internalshm.Aligned(base) {
		return nil, fmt.Errorf("%w: %p", ErrMisaligned, base)
	}
	return &Region{
		mapping:   mapping,
		base:      base,
		capacity:  uint32(config.Capacity),
		origin:    origin,
		ownership: OwnershipShared,
		link:      config.LinkPath(),
		tel:       tel,
	}, nil
}

// LoadByte returns the byte at off. It panics with *OutOfBoundsError when
// off >= Capacity().
func (r *Region) LoadByte(off uint32) byte {
	if off >= r.capacity {
		r.outOfBounds("read", off)
	}
	return internalshm.LoadByte(r.base, uintptr(off))
}

// StoreByte writes v at off. It panics with *OutOfBoundsError when
// off >= Capacity().
func (r *Region) StoreByte(off uint32, v byte) {
	if off >= r.capacity {
		r.outOfBounds("write", off)
	}
	internalshm.StoreByte(r.base, uintptr(off), v)
}

func (r *Region) outOfBounds(op string, off uint32) {
	err := &OutOfBoundsError{Op: op, Offset: off, Capacity: r.capacity}
	r.tel.metrics.boundsViolation(op)
	internalLogger.Errorf("%v", err)
	panic(err)
}

// ReadAt implements io.ReaderAt with the same volatile loads as LoadByte.
// Reads past the capacity are cut short with io.EOF.
func (r *Region) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrOutOfBounds, off)
	}
	if off >= int64(r.capacity) {
		return 0, io.EOF
	}
	n := len(p)
	if remain := int64(r.capacity) - off; int64(n) > remain {
		n = int(remain)
	}
	for i := 0; i < n; i++ {
		p[i] = internalshm.LoadByte(r.base, uintptr(off)+uintptr(i))
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt with the same volatile stores as StoreByte.
// A write that does not fit below the capacity writes nothing.
func (r *Region) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(r.capacity) {
		return 0, fmt.Errorf("%w: [%d, %d) exceeds capacity %#x", ErrOutOfBounds, off, off+int64(len(p)), r.capacity)
	}
	for i, b := range p {
		internalshm.StoreByte(r.base, uintptr(off)+uintptr(i), b)
	}
	return len(p), nil
}

// Capacity is the number of addressable bytes.
func (r *Region) Capacity() int { return int(r.capacity) }

// MappedSize is the size of the underlying object, which may exceed Capacity when
// another process created it larger.
func (r *Region) MappedSize() int { return len(r.mapping.Addr) }

// ID is the OS name of the shared object.
func (r *Region) ID() string { return r.mapping.ID }

// LinkPath is the link file the region was found through.
func (r *Region) LinkPath() string { return r.link }

// Origin reports whether this process created the object.
func (r *Region) Origin() Origin { return r.origin }

// Ownership is always OwnershipShared for a Region.
func (r *Region) Ownership() Ownership { return r.ownership }

// release unmaps this process's view. The shared object and the link file stay.
func (r *Region) release() error {
	err := internalshm.UnmapRegion(r.mapping)
	r.base = nil
	r.capacity = 0
	if err != nil {
		internalLogger.Errorf("release region %s: %v", r.mapping.ID, err)
	} else {
		internalLogger.Debugf("released region %s (%s)", r.mapping.ID, r.origin)
	}
	r.tel.release(r, err)
	return err
}
