package shm

import (
	"errors"
	"fmt"

	internalshm "github.com/srediag/shmregion/internal/shm"
)

var (
	// ErrInvalidConfig is returned by VerifyConfig.
	ErrInvalidConfig = errors.New("invalid region config")
	// ErrSizeMismatch is returned when the attached object is smaller than the
	// configured capacity.
	ErrSizeMismatch = internalshm.ErrSizeMismatch
	// ErrNoSpace is returned when /dev/shm has no room for a new region.
	ErrNoSpace = internalshm.ErrNoSpace
	// ErrUnsupportedPlatform is returned on platforms without POSIX shared memory.
	ErrUnsupportedPlatform = internalshm.ErrUnsupportedPlatform
	// ErrOutOfBounds is returned by the bulk accessors for ranges past the capacity.
	ErrOutOfBounds = errors.New("offset out of bounds")
	// ErrMisaligned is returned if a mapping is not 4-byte aligned.
	ErrMisaligned = errors.New("mapping base is not word aligned")
)

// OutOfBoundsError is the panic value of LoadByte and StoreByte on a present region
// when the offset is not below the capacity.
type OutOfBoundsError struct {
	Op       string
	Offset   uint32
	Capacity uint32
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("shm: index error in %s byte, %#x is out of bounds (capacity %#x)", e.Op, e.Offset, e.Capacity)
}

// Unwrap lets errors.Is match ErrOutOfBounds.
func (e *OutOfBoundsError) Unwrap() error { return ErrOutOfBounds }
