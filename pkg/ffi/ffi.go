// Package ffi is the foreign-call surface of the shared region: five operations
// keyed by an opaque Token, mirroring the C exports of cmd/shmemffi.
//
// Every Create allocates one table slot holding a shm.Handle and returns its
// Token. The slot lives until Release is called with that Token; callers must
// release each Token exactly once and must not use it afterwards. Unknown Tokens
// behave like empty handles, which makes misuse benign but does not make it
// defined.
package ffi

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/srediag/shmregion/internal/logging"
	"github.com/srediag/shmregion/pkg/shm"
)

var logger = logging.New("ffi", nil)

// Token is the opaque, address-sized reference handed across the boundary.
// Zero is never issued.
type Token uintptr

// Table owns the handles created through it.
type Table struct {
	config  *shm.Config
	handles cmap.ConcurrentMap[Token, *shm.Handle]
	next    atomic.Uintptr
}

func shardToken(t Token) uint32 {
	return uint32(t) ^ uint32(uint64(t)>>32)
}

// NewTable returns a Table opening regions with config (nil means
// shm.DefaultConfig()).
func NewTable(config *shm.Config) *Table {
	if config == nil {
		config = shm.DefaultConfig()
	}
	return &Table{
		config:  config,
		handles: cmap.NewWithCustomShardingFunction[Token, *shm.Handle](shardToken),
	}
}

// Create opens the region with the table's policy and returns a Token for the
// resulting handle, which is empty when the policy is open-only and no creator has
// published the region. An unrecoverable setup failure panics; across the C boundary that
// terminates the process.
func (t *Table) Create() Token {
	config := *t.config
	h, err := shm.Open(context.Background(), &config)
	if err != nil {
		logger.Errorf("shared region setup failed: %v", err)
		panic(fmt.Errorf("shared region setup failed: %w", err))
	}
	tok := Token(t.next.Add(1))
	t.handles.Set(tok, h)
	logger.Debugf("token %d present=%v", tok, h.Present())
	return tok
}

func (t *Table) lookup(tok Token) *shm.Handle {
	h, _ := t.handles.Get(tok)
	return h
}

// Read returns the byte at off, 0 for an empty handle. Out of bounds on a present
// handle panics.
func (t *Table) Read(tok Token, off uint32) uint8 {
	return t.lookup(tok).LoadByte(off)
}

// Write stores v at off; a no-op for an empty handle. Out of bounds on a present
// handle panics.
func (t *Table) Write(tok Token, off uint32, v uint8) {
	t.lookup(tok).StoreByte(off, v)
}

// IsPresent reports whether tok holds an attached region.
func (t *Table) IsPresent(tok Token) bool {
	return t.lookup(tok).Present()
}

// Release frees the slot of tok and unmaps its region, if any. The shared object
// itself is left for the other attached processes.
func (t *Table) Release(tok Token) {
	h, ok := t.handles.Pop(tok)
	if !ok {
		logger.Warnf("release of unknown token %d", tok)
		return
	}
	if err := h.Release(); err != nil {
		logger.Errorf("release token %d: %v", tok, err)
	}
}

// Len is the number of live tokens.
func (t *Table) Len() int {
	return t.handles.Count()
}

// envPolicy overrides the policy of Default, e.g. "create-or-open" for a host
// process that loads the library and must publish the region itself.
const envPolicy = "SHMREGION_FFI_POLICY"

// boundaryConfig is the configuration of Default: the protocol defaults with
// PolicyOpenOnly, so a tool started before the host never creates the region the
// host is about to create.
func boundaryConfig(getenv func(string) string) *shm.Config {
	config := shm.DefaultConfig()
	config.Policy = shm.PolicyOpenOnly
	if v := getenv(envPolicy); v != "" {
		p, err := shm.ParsePolicy(v)
		if err != nil {
			logger.Warnf("ignoring %s: %v", envPolicy, err)
			return config
		}
		config.Policy = p
	}
	return config
}

// Default is the process-wide table behind the package-level functions and the
// C exports. It only attaches unless SHMREGION_FFI_POLICY says otherwise.
var Default = NewTable(boundaryConfig(os.Getenv))

// Create is Default.Create.
func Create() Token { return Default.Create() }

// Read is Default.Read.
func Read(tok Token, off uint32) uint8 { return Default.Read(tok, off) }

// Write is Default.Write.
func Write(tok Token, off uint32, v uint8) { Default.Write(tok, off, v) }

// IsPresent is Default.IsPresent.
func IsPresent(tok Token) bool { return Default.IsPresent(tok) }

// Release is Default.Release.
func Release(tok Token) { Default.Release(tok) }
