//go:build linux

package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shmregion/pkg/lifecycle"
	"github.com/srediag/shmregion/pkg/shm"
)

func get(t *testing.T, h http.Handler, path string) int {
	t.Helper()
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, path, nil))
	return rw.Code
}

func TestHandlerFollowsHolder(t *testing.T) {
	config := &shm.Config{Dir: t.TempDir(), Name: "health_test"}
	t.Cleanup(func() { _ = shm.Remove(config) })
	holder := lifecycle.NewHolder(config, shm.OwnershipShared)

	h := NewHandler(prometheus.NewRegistry(), holder, 0)
	assert.Equal(t, http.StatusOK, get(t, h, "/live"))
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready"))

	require.NoError(t, holder.Start(context.Background()))
	assert.Equal(t, http.StatusOK, get(t, h, "/ready"))

	require.NoError(t, shm.Remove(config))
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready"))
	assert.Equal(t, http.StatusOK, get(t, h, "/live"))

	require.NoError(t, holder.Stop())
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready"))
}

func TestReadyDuringStop(t *testing.T) {
	config := &shm.Config{Dir: t.TempDir(), Name: "health_stop_test"}
	t.Cleanup(func() { _ = shm.Remove(config) })

	for i := 0; i < 20; i++ {
		holder := lifecycle.NewHolder(config, shm.OwnershipExclusive)
		require.NoError(t, holder.Start(context.Background()))
		h := NewHandler(nil, holder, 0)

		done := make(chan struct{})
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-done:
						return
					default:
					}
					code := get(t, h, "/ready")
					if code != http.StatusOK && code != http.StatusServiceUnavailable {
						t.Errorf("unexpected status %d", code)
						return
					}
				}
			}()
		}
		require.NoError(t, holder.Stop())
		assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready"))
		close(done)
		wg.Wait()
	}
}

type fixedSource struct{ h *shm.Handle }

func (s fixedSource) WithHandle(fn func(*shm.Handle) error) error { return fn(s.h) }

func TestChecks(t *testing.T) {
	empty := fixedSource{shm.Empty()}
	assert.ErrorIs(t, RegionHeldCheck(empty)(), ErrNotHeld)
	assert.ErrorIs(t, RegionLinkedCheck(empty)(), ErrNotHeld)

	config := &shm.Config{Dir: t.TempDir(), Name: "health_check_test"}
	t.Cleanup(func() { _ = shm.Remove(config) })
	handle, err := shm.Open(context.Background(), config)
	require.NoError(t, err)
	defer handle.Release()

	held := fixedSource{handle}
	assert.NoError(t, RegionHeldCheck(held)())
	assert.NoError(t, RegionLinkedCheck(held)())

	require.NoError(t, shm.Remove(config))
	assert.ErrorIs(t, RegionLinkedCheck(held)(), ErrUnlinked)
}

func TestGoroutineThreshold(t *testing.T) {
	h := NewHandler(nil, fixedSource{shm.Empty()}, 1)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/live"))
}
