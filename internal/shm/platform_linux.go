//go:build linux

package shm

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// devShmPath resolves an id the way glibc's shm_open does.
func devShmPath(id string) (string, error) {
	name := strings.TrimPrefix(id, "/")
	if name == "" || len(name) > 255 || strings.Contains(name, "/") || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(devShmDir, name), nil
}

// MapRegion maps or creates a shared memory region (Linux implementation).
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Size <= 0 {
		return nil, fmt.Errorf("invalid size %d", opts.Size)
	}
	shmPath, err := devShmPath(opts.ID)
	if err != nil {
		return nil, err
	}
	flags := unix.O_RDWR | unix.O_CLOEXEC | unix.O_NOFOLLOW
	if opts.Create {
		if !CanCreateOnDevShm(uint64(opts.Size), shmPath) {
			return nil, fmt.Errorf("%w for %d bytes at %s", ErrNoSpace, opts.Size, shmPath)
		}
		flags |= unix.O_CREAT | unix.O_EXCL
	}
	fd, err := unix.Open(shmPath, flags, 0600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", shmPath, err)
	}
	size := opts.Size
	if opts.Create {
		if err := unix.Ftruncate(fd, int64(opts.Size)); err != nil {
			_ = unix.Close(fd)
			_ = unix.Unlink(shmPath)
			return nil, fmt.Errorf("ftruncate: %w", err)
		}
	} else {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("fstat: %w", err)
		}
		if st.Size < int64(opts.Size) {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("%w: %s is %d bytes, want at least %d", ErrSizeMismatch, opts.ID, st.Size, opts.Size)
		}
		size = int(st.Size)
	}
	addr, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		if opts.Create {
			_ = unix.Unlink(shmPath)
		}
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &MappedRegion{
		Addr: addr,
		ID:   opts.ID,
		fd:   fd,
	}, nil
}

// UnmapRegion unmaps the region and closes its descriptor. The shared memory
// object itself stays in place.
func UnmapRegion(region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	if err := unix.Munmap(region.Addr); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	region.Addr = nil
	if err := unix.Close(region.fd); err != nil {
		return fmt.Errorf("close fd %d: %w", region.fd, err)
	}
	return nil
}

// Unlink removes the shared memory object named by id. Processes that still have
// it mapped keep their mapping.
func Unlink(id string) error {
	shmPath, err := devShmPath(id)
	if err != nil {
		return err
	}
	if err := unix.Unlink(shmPath); err != nil {
		return fmt.Errorf("unlink %s: %w", shmPath, err)
	}
	return nil
}
