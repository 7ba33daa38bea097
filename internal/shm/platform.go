// Package shm contains the platform-specific helpers behind pkg/shm: mapping
// named POSIX shared memory objects, the link-file protocol that names them, and
// volatile byte access into mapped memory.
package shm

import "errors"

var (
	// ErrSizeMismatch is returned when an existing mapping is smaller than requested.
	ErrSizeMismatch = errors.New("shared memory object smaller than requested size")
	// ErrNoSpace is returned when /dev/shm cannot hold a new mapping.
	ErrNoSpace = errors.New("not enough free space in /dev/shm")
	// ErrUnsupportedPlatform is returned by the mapping helpers on platforms without
	// POSIX shared memory support.
	ErrUnsupportedPlatform = errors.New("shared memory mapping is not supported on this platform")
	// ErrInvalidID is returned for mapping ids that are not of the form "/name".
	ErrInvalidID = errors.New("invalid shared memory id")
)

// MappedRegion represents a memory-mapped shared region.
type MappedRegion struct {
	// Addr is the whole mapping; it may be longer than the size that was asked for
	// when an existing object was attached.
	Addr []byte
	// ID is the OS-level name of the object, e.g. "/shmem_5E1A93C0D7B2F846".
	ID string
	fd int
}

// MapOptions defines options for mapping shared memory.
type MapOptions struct {
	// ID is the OS-level name of the shared memory object.
	ID string
	// Size is the size to create, or the minimum size to accept on attach.
	Size int
	// Create requests exclusive creation; it fails if ID already exists.
	Create bool
}

// Function implementations are provided in platform-specific files (platform_linux.go, platform_other.go).
