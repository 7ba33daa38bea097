package shm

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultName is the link file name both sides of the protocol agree on.
	DefaultName = "msp430_shmem_id"
	// Capacity is the protocol capacity of the region, 65 KiB + 1 KiB.
	Capacity = 0x10400
)

// Policy selects how Open obtains the region.
type Policy int

const (
	// PolicyCreateOrOpen creates the region, or attaches when the name is already
	// bound.
	PolicyCreateOrOpen Policy = iota
	// PolicyOpenOnly only attaches; if no region exists the result is empty.
	PolicyOpenOnly
)

func (p Policy) String() string {
	switch p {
	case PolicyCreateOrOpen:
		return "create-or-open"
	case PolicyOpenOnly:
		return "open-only"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy is the inverse of Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "create-or-open", "":
		return PolicyCreateOrOpen, nil
	case "open-only":
		return PolicyOpenOnly, nil
	}
	return 0, fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, s)
}

// Config holds region creation parameters. The zero values of Dir, Name and
// Capacity mean the protocol defaults.
type Config struct {
	// Dir holds the link file; empty means os.TempDir().
	Dir string
	// Name is the link file name.
	Name string
	// Capacity is the addressable size in bytes.
	Capacity int
	// Policy selects create-or-open or open-only.
	Policy Policy

	// Metrics, Meter and Tracer are optional instrumentation.
	Metrics *Metrics
	Meter   metric.Meter
	Tracer  trace.Tracer
}

// DefaultConfig returns the interoperable protocol configuration.
func DefaultConfig() *Config {
	return &Config{
		Dir:      os.TempDir(),
		Name:     DefaultName,
		Capacity: Capacity,
		Policy:   PolicyCreateOrOpen,
	}
}

// VerifyConfig fills protocol defaults into zero fields and validates the result.
func VerifyConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if config.Dir == "" {
		config.Dir = os.TempDir()
	}
	if config.Name == "" {
		config.Name = DefaultName
	}
	if config.Capacity == 0 {
		config.Capacity = Capacity
	}
	if strings.ContainsAny(config.Name, `/\`) || config.Name == "." || config.Name == ".." {
		return fmt.Errorf("%w: name %q must be a plain file name", ErrInvalidConfig, config.Name)
	}
	if config.Capacity < 0 || uint64(config.Capacity) > math.MaxUint32 {
		return fmt.Errorf("%w: capacity %d out of range", ErrInvalidConfig, config.Capacity)
	}
	if config.Capacity%4 != 0 {
		return fmt.Errorf("%w: capacity %d is not a multiple of 4", ErrInvalidConfig, config.Capacity)
	}
	if config.Policy != PolicyCreateOrOpen && config.Policy != PolicyOpenOnly {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, config.Policy)
	}
	return nil
}

// LinkPath is the path of the link file that names the region.
func (c *Config) LinkPath() string {
	dir := c.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	name := c.Name
	if name == "" {
		name = DefaultName
	}
	return filepath.Join(dir, name)
}
