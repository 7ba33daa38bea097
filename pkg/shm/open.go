package shm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	internalshm "github.com/srediag/shmregion/internal/shm"
)

// Open obtains the region described by config (nil means DefaultConfig()).
//
// With PolicyCreateOrOpen it binds the link file exclusively and creates a fresh
// zeroed object; if the link is already bound it attaches instead. With
// PolicyOpenOnly it only attaches.
//
// A region that cannot be found (no link, a link whose creator has not finished
// writing it, or a link naming a vanished object) is not an error: Open returns an
// empty Handle. Any other failure, including an existing object smaller than the
// capacity, is returned as an error and leaves nothing behind.
func Open(ctx context.Context, config *Config) (h *Handle, err error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := VerifyConfig(config); err != nil {
		return nil, err
	}
	tel := newTelemetry(config)
	ctx, span := tel.startOpen(ctx, config)
	defer func() { tel.endOpen(ctx, span, h, err) }()

	if config.Policy == PolicyOpenOnly {
		return attach(ctx, config, tel)
	}
	return createOrOpen(ctx, config, tel)
}

func createOrOpen(ctx context.Context, config *Config, tel *telemetry) (*Handle, error) {
	link := config.LinkPath()
	f, err := internalshm.CreateLink(link)
	if errors.Is(err, fs.ErrExist) {
		internalLogger.Debugf("link %s already bound, attaching", link)
		return attach(ctx, config, tel)
	}
	if err != nil {
		return nil, fmt.Errorf("create link %s: %w", link, err)
	}

	mapping, err := internalshm.MapRegion(ctx, internalshm.MapOptions{
		ID:     internalshm.NewID(),
		Size:   config.Capacity,
		Create: true,
	})
	if err != nil {
		_ = f.Close()
		_ = os.Remove(link)
		return nil, fmt.Errorf("create region: %w", err)
	}
	undo := func() {
		_ = internalshm.UnmapRegion(mapping)
		_ = internalshm.Unlink(mapping.ID)
		_ = os.Remove(link)
	}
	if err := internalshm.BindLink(f, mapping.ID); err != nil {
		undo()
		return nil, err
	}
	region, err := newRegion(mapping, OriginCreated, config, tel)
	if err != nil {
		undo()
		return nil, err
	}
	internalLogger.Infof("created region %s (%d bytes) at %s", mapping.ID, config.Capacity, link)
	return &Handle{region: region}, nil
}

func attach(ctx context.Context, config *Config, tel *telemetry) (*Handle, error) {
	link := config.LinkPath()
	id, err := internalshm.ReadLink(link)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, internalshm.ErrLinkEmpty) {
		internalLogger.Warnf("no region bound at %s: %v", link, err)
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read link %s: %w", link, err)
	}

	mapping, err := internalshm.MapRegion(ctx, internalshm.MapOptions{
		ID:   id,
		Size: config.Capacity,
	})
	if errors.Is(err, fs.ErrNotExist) {
		internalLogger.Warnf("link %s names missing region %s", link, id)
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("attach region %s: %w", id, err)
	}
	region, err := newRegion(mapping, OriginAttached, config, tel)
	if err != nil {
		_ = internalshm.UnmapRegion(mapping)
		return nil, err
	}
	internalLogger.Infof("attached region %s (%d of %d bytes) via %s", id, config.Capacity, len(mapping.Addr), link)
	return &Handle{region: region}, nil
}

// Remove destroys the region named by config: it unlinks the shared object and
// removes the link file. Processes that still have it mapped keep their view.
// Removing a region that does not exist is not an error.
func Remove(config *Config) error {
	if config == nil {
		config = DefaultConfig()
	}
	if err := VerifyConfig(config); err != nil {
		return err
	}
	link := config.LinkPath()
	id, err := internalshm.ReadLink(link)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case errors.Is(err, internalshm.ErrLinkEmpty):
	case err != nil:
		return fmt.Errorf("read link %s: %w", link, err)
	default:
		if err := internalshm.Unlink(id); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove link: %w", err)
	}
	internalLogger.Infof("removed region %s at %s", id, link)
	return nil
}
