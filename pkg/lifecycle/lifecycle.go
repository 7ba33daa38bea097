// Package lifecycle keeps a shared region attached for the lifetime of the
// process that is meant to own it, typically the host application or
// `shmemctl serve`.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/srediag/shmregion/internal/logging"
	"github.com/srediag/shmregion/pkg/shm"
)

var logger = logging.New("lifecycle", nil)

// State of a Holder.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

var (
	// ErrAlreadyStarted is returned by Start on a Holder that is not idle.
	ErrAlreadyStarted = errors.New("lifecycle: holder already started")
	// ErrRegionAbsent is returned by Start when an open-only policy finds nothing.
	ErrRegionAbsent = errors.New("lifecycle: region absent")
)

// Holder opens the region once and keeps it until Stop.
//
// With OwnershipExclusive the Holder also destroys the shared object on Stop, but
// only when it was the creator. A Holder that attached to somebody else's region
// never removes it.
type Holder struct {
	config    *shm.Config
	ownership shm.Ownership

	mu     sync.Mutex
	state  State
	handle *shm.Handle
}

// NewHolder returns an idle Holder for config (nil means shm.DefaultConfig()).
func NewHolder(config *shm.Config, ownership shm.Ownership) *Holder {
	if config == nil {
		config = shm.DefaultConfig()
	}
	c := *config
	return &Holder{config: &c, ownership: ownership}
}

// Start opens the region.
func (h *Holder) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateIdle {
		return ErrAlreadyStarted
	}
	handle, err := shm.Open(ctx, h.config)
	if err != nil {
		return fmt.Errorf("start holder: %w", err)
	}
	if !handle.Present() {
		return fmt.Errorf("%w at %s", ErrRegionAbsent, h.config.LinkPath())
	}
	h.handle = handle
	h.state = StateRunning
	logger.Infof("holding %s region %s (%s)", handle.Region().Origin(), handle.Region().ID(), h.ownership)
	return nil
}

// Stop releases the region and, for an exclusive creator, removes it. Stopping an
// idle or stopped Holder only marks it stopped.
func (h *Holder) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateRunning {
		h.state = StateStopped
		return nil
	}
	h.state = StateStopped
	created := h.handle.Region().Origin() == shm.OriginCreated
	err := h.handle.Release()
	h.handle = nil
	if h.ownership == shm.OwnershipExclusive && created {
		if rerr := shm.Remove(h.config); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}
	if err != nil {
		logger.Errorf("stop holder: %v", err)
	}
	return err
}

// State returns the current state.
func (h *Holder) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Handle returns the held handle; it is empty unless the Holder is running. The
// returned handle is emptied by Stop, so a goroutine that may run concurrently
// with Stop reads it through WithHandle instead.
func (h *Holder) Handle() *shm.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handle == nil {
		return shm.Empty()
	}
	return h.handle
}

// WithHandle calls fn with the held handle (empty unless running). Stop waits for
// fn to return, so the region stays mapped for the duration of the call.
func (h *Holder) WithHandle(fn func(*shm.Handle) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handle == nil {
		return fn(shm.Empty())
	}
	return fn(h.handle)
}

// Ownership returns the Holder's ownership mode.
func (h *Holder) Ownership() shm.Ownership { return h.ownership }

// Config returns the verified configuration the Holder opens with.
func (h *Holder) Config() *shm.Config { return h.config }
