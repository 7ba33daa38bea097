//go:build !linux

package shm

import (
	"context"
)

// MapRegion is not implemented on this platform.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	// TODO: implement using CreateFileMappingW/MapViewOfFile on windows and shm_open via cgo on darwin
	return nil, ErrUnsupportedPlatform
}

// UnmapRegion is not implemented on this platform.
func UnmapRegion(region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	return ErrUnsupportedPlatform
}

// Unlink is not implemented on this platform.
func Unlink(id string) error {
	return ErrUnsupportedPlatform
}
