// Package health exposes liveness and readiness checks for a process holding the
// shared region.
package health

import (
	"errors"
	"fmt"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"

	internalshm "github.com/srediag/shmregion/internal/shm"
	"github.com/srediag/shmregion/pkg/shm"
)

// DefaultMaxGoroutines is the liveness threshold used when none is given.
const DefaultMaxGoroutines = 1000

var (
	// ErrNotHeld reports that no region is attached.
	ErrNotHeld = errors.New("health: region not held")
	// ErrUnlinked reports that the link file no longer names the held region.
	ErrUnlinked = errors.New("health: region unlinked")
)

// HandleSource lends out the handle to check. The handle must stay valid until fn
// returns. *lifecycle.Holder implements it.
type HandleSource interface {
	WithHandle(fn func(*shm.Handle) error) error
}

// RegionHeldCheck fails while src holds no region.
func RegionHeldCheck(src HandleSource) healthcheck.Check {
	return func() error {
		return src.WithHandle(func(h *shm.Handle) error {
			if !h.Present() {
				return ErrNotHeld
			}
			return nil
		})
	}
}

// RegionLinkedCheck fails when the link file is gone or names another object,
// i.e. when a newcomer could no longer attach to the region this process holds.
func RegionLinkedCheck(src HandleSource) healthcheck.Check {
	return func() error {
		return src.WithHandle(func(h *shm.Handle) error {
			r := h.Region()
			if r == nil {
				return ErrNotHeld
			}
			id, err := internalshm.ReadLink(r.LinkPath())
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnlinked, err)
			}
			if id != r.ID() {
				return fmt.Errorf("%w: link names %s, holding %s", ErrUnlinked, id, r.ID())
			}
			return nil
		})
	}
}

// NewHandler returns a healthcheck handler serving /live and /ready for src. With
// a non-nil reg the check results are also exported as Prometheus gauges under the
// shmregion namespace. maxGoroutines <= 0 means DefaultMaxGoroutines.
func NewHandler(reg prometheus.Registerer, src HandleSource, maxGoroutines int) healthcheck.Handler {
	if maxGoroutines <= 0 {
		maxGoroutines = DefaultMaxGoroutines
	}
	var h healthcheck.Handler
	if reg != nil {
		h = healthcheck.NewMetricsHandler(reg, "shmregion")
	} else {
		h = healthcheck.NewHandler()
	}
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))
	h.AddReadinessCheck("region-held", RegionHeldCheck(src))
	h.AddReadinessCheck("region-linked", RegionLinkedCheck(src))
	return h
}
