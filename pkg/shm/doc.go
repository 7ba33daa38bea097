// Package shm provides a fixed-capacity, byte-addressable shared memory region that
// independently built processes attach to under a well-known name.
//
// The region is named by a link file, by default $TMPDIR/msp430_shmem_id, that holds
// the id of a POSIX shared memory object of 0x10400 bytes. Open either creates the
// object or attaches to an existing one, depending on Config.Policy, and returns a
// Handle: a Region, or the empty state when nothing could be attached. Every Handle
// method tolerates both states.
//
// Byte access is volatile: each LoadByte and StoreByte is a single atomic memory
// operation, so changes made by the other process are always observed and no store
// is elided. Offsets at or past the capacity are programming errors and panic.
// The package does not synchronise readers and writers.
//
// No Handle ever destroys the shared object; Remove is the separate administrative
// operation for that.
//
// Example usage:
//
//	h, err := shm.Open(ctx, shm.DefaultConfig())
//	if err != nil {
//	  // setup failed for a reason other than "already exists"
//	}
//	defer h.Release()
//	if h.Present() {
//	  h.StoreByte(0, 0xAB)
//	}
//
// The package is instrumented with Prometheus metrics (Config.Metrics) and
// OpenTelemetry tracing and counters (Config.Tracer, Config.Meter).
package shm
