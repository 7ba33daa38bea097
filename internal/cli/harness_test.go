package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srediag/shmregion/pkg/shm"
)

const testName = "shmemctl_test"

// CLI runs shmemctl against a private region directory.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

func NewCLI(t *testing.T) *CLI {
	t.Helper()

	c := &CLI{
		t:   t,
		Dir: t.TempDir(),
		Env: map[string]string{},
	}
	t.Cleanup(func() { _ = shm.Remove(c.RegionConfig()) })
	return c
}

// RegionConfig is the shm.Config the CLI's flags select.
func (c *CLI) RegionConfig() *shm.Config {
	return &shm.Config{Dir: c.Dir, Name: testName}
}

func (c *CLI) args(args []string) []string {
	return append([]string{"shmemctl", "--dir", c.Dir, "--name", testName}, args...)
}

// Run executes the CLI with the given args and returns stdout, stderr, and exit code.
func (c *CLI) Run(args ...string) (string, string, int) {
	return c.RunWithInput("", args...)
}

// RunWithInput executes the CLI with stdin.
func (c *CLI) RunWithInput(stdin string, args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer
	code := Run(strings.NewReader(stdin), &outBuf, &errBuf, c.args(args), c.Env)
	return outBuf.String(), errBuf.String(), code
}

// Start runs the CLI in the background until ctx is cancelled. The returned
// function waits for exit and returns the exit code.
func (c *CLI) Start(ctx context.Context, out, errOut io.Writer, args ...string) func() int {
	done := make(chan int, 1)
	go func() {
		done <- RunContext(ctx, strings.NewReader(""), out, errOut, c.args(args), c.Env)
	}()
	return func() int { return <-done }
}

// MustRun executes the CLI and fails the test if the command returns non-zero.
// Returns trimmed stdout on success.
func (c *CLI) MustRun(args ...string) string {
	c.t.Helper()

	stdout, stderr, code := c.Run(args...)
	if code != 0 {
		c.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail executes the CLI and fails the test if the command succeeds.
// Returns trimmed stderr.
func (c *CLI) MustFail(args ...string) string {
	c.t.Helper()

	stdout, stderr, code := c.Run(args...)
	if code == 0 {
		c.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// CreateRegion creates the region the way a host application would and keeps it
// attached until the test ends.
func (c *CLI) CreateRegion() *shm.Handle {
	c.t.Helper()

	h, err := shm.Open(context.Background(), c.RegionConfig())
	require.NoError(c.t, err)
	require.True(c.t, h.Present())
	c.t.Cleanup(func() { _ = h.Release() })
	return h
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
