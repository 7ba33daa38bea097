package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shmregion/pkg/shm"
)

func TestInfo(t *testing.T) {
	c := NewCLI(t)

	out := c.MustRun("info")
	assert.Equal(t, "link:      "+filepath.Join(c.Dir, testName)+"\npresent:   false", out)

	h := c.CreateRegion()
	out = c.MustRun("info")
	assert.Contains(t, out, "present:   true")
	assert.Contains(t, out, "id:        "+h.Region().ID())
	assert.Contains(t, out, "capacity:  0x10400")
	assert.Contains(t, out, "ownership: shared")
}

func TestReadWriteAbsent(t *testing.T) {
	c := NewCLI(t)
	assert.Contains(t, c.MustFail("read", "0"), ErrRegionAbsent.Error())
	assert.Contains(t, c.MustFail("write", "0", "1"), ErrRegionAbsent.Error())

	// the companion tool never creates the region
	_, err := os.Stat(filepath.Join(c.Dir, testName))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteThenRead(t *testing.T) {
	c := NewCLI(t)
	h := c.CreateRegion()

	assert.Equal(t, "wrote 3 bytes at 0x20", c.MustRun("write", "0x20", "0x41", "66", "0"))
	assert.Equal(t, byte(0x41), h.LoadByte(0x20))
	assert.Equal(t, byte(0x42), h.LoadByte(0x21))

	got := c.MustRun("read", "0x20", "3")
	want := "00000020  41 42 00" + strings.Repeat("   ", 5) + "    " + strings.Repeat("   ", 7) + "  |AB.|"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("read mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteOutOfBounds(t *testing.T) {
	c := NewCLI(t)
	h := c.CreateRegion()

	stderr := c.MustFail("write", "0x103ff", "1", "2")
	assert.Contains(t, stderr, shm.ErrOutOfBounds.Error())
	assert.Equal(t, byte(0), h.LoadByte(0x103ff))

	assert.Contains(t, c.MustFail("write", "0", "0x100"), "invalid byte")
	assert.Contains(t, c.MustFail("read", "0x10400"), "EOF")
}

func TestReadClipsAtEnd(t *testing.T) {
	c := NewCLI(t)
	h := c.CreateRegion()
	h.StoreByte(0x103ff, 0x7e)

	out := c.MustRun("read", "0x103f0", "0x100")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "000103f0  00"))
	assert.True(t, strings.HasSuffix(lines[0], "7e  |...............~|"))
}

func TestHexdump(t *testing.T) {
	p := make([]byte, 20)
	for i := range p {
		p[i] = byte(i)
	}
	var buf bytes.Buffer
	require.NoError(t, writeHexdump(&buf, 0, p))

	want := "00000000  00 01 02 03 04 05 06 07  08 09 0a 0b 0c 0d 0e 0f  |................|\n" +
		"00000010  10 11 12 13" + strings.Repeat("   ", 4) + "    " + strings.Repeat("   ", 7) + "  |....|\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("hexdump mismatch (-want +got):\n%s", diff)
	}
}

func TestDumpLoad(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(fmt.Sprintf("zstd=%v", compress), func(t *testing.T) {
			c := NewCLI(t)
			h := c.CreateRegion()
			h.StoreByte(0, 0xde)
			h.StoreByte(0x8000, 0xad)
			h.StoreByte(shm.Capacity-1, 0xbe)

			file := filepath.Join(t.TempDir(), "snap.bin")
			args := []string{"dump", file}
			if compress {
				args = append(args, "--zstd")
			}
			assert.Contains(t, c.MustRun(args...), "dumped 0x10400 bytes to "+file)

			data, err := os.ReadFile(file)
			require.NoError(t, err)
			if compress {
				assert.True(t, bytes.HasPrefix(data, zstdMagic))
				assert.Less(t, len(data), shm.Capacity)
			} else {
				require.Len(t, data, shm.Capacity)
				assert.Equal(t, byte(0xad), data[0x8000])
			}

			h.StoreByte(0, 0)
			h.StoreByte(0x8000, 0)
			h.StoreByte(shm.Capacity-1, 0)

			assert.Equal(t, "loaded 0x10400 bytes from "+file, c.MustRun("load", file))
			assert.Equal(t, byte(0xde), h.LoadByte(0))
			assert.Equal(t, byte(0xad), h.LoadByte(0x8000))
			assert.Equal(t, byte(0xbe), h.LoadByte(shm.Capacity-1))
		})
	}
}

func TestLoadRejectsOversized(t *testing.T) {
	c := NewCLI(t)
	h := c.CreateRegion()

	file := filepath.Join(t.TempDir(), "big.bin")
	big := bytes.Repeat([]byte{1}, shm.Capacity+1)
	require.NoError(t, os.WriteFile(file, big, 0o600))

	assert.Contains(t, c.MustFail("load", file), shm.ErrOutOfBounds.Error())
	assert.Equal(t, byte(0), h.LoadByte(0))

	assert.Contains(t, c.MustFail("load", filepath.Join(t.TempDir(), "missing")), "reading snapshot")
}

func TestWait(t *testing.T) {
	c := NewCLI(t)
	stderr := c.MustFail("wait", "--timeout", "50ms")
	assert.Contains(t, stderr, ErrRegionAbsent.Error())

	var out, errOut syncBuffer
	wait := c.Start(context.Background(), &out, &errOut, "wait", "--timeout", "10s")
	time.Sleep(100 * time.Millisecond)
	h := c.CreateRegion()

	require.Equal(t, 0, wait(), errOut.String())
	assert.Contains(t, out.String(), "region "+h.Region().ID()+" present after")
}

func TestWaitCancelled(t *testing.T) {
	c := NewCLI(t)
	ctx, cancel := context.WithCancel(context.Background())
	var out, errOut syncBuffer
	wait := c.Start(ctx, &out, &errOut, "wait", "--timeout", "0")
	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.Equal(t, 1, wait())
	assert.Contains(t, errOut.String(), "waiting for region")
}

func TestVerify(t *testing.T) {
	c := NewCLI(t)
	h := c.CreateRegion()
	h.StoreByte(5, 0x99)
	h.StoreByte(shm.Capacity-2, 0x77)

	out := c.MustRun("verify", "--workers", "3", "--chunk", "1000")
	assert.Equal(t, "verified 67 chunks over 0x10400 bytes, 0 mismatches", out)

	assert.Equal(t, byte(0x99), h.LoadByte(5))
	assert.Equal(t, byte(0x77), h.LoadByte(shm.Capacity-2))
	assert.Equal(t, byte(0), h.LoadByte(6))

	assert.Contains(t, c.MustFail("verify", "--workers", "0"), "must be positive")
}

func TestWatch(t *testing.T) {
	c := NewCLI(t)
	h := c.CreateRegion()

	var out, errOut syncBuffer
	watch := c.Start(context.Background(), &out, &errOut, "watch", "--interval", "5ms", "--limit", "1")

	done := make(chan struct{})
	defer close(done)
	go func() {
		for v := byte(1); ; v++ {
			select {
			case <-done:
				return
			case <-time.After(10 * time.Millisecond):
				h.StoreByte(0x1234, v)
			}
		}
	}()

	require.Equal(t, 0, watch(), errOut.String())
	assert.Contains(t, out.String(), "watching "+h.Region().ID())
	assert.Regexp(t, regexp.MustCompile(`change 1: 1 bytes\n  0x01234: [0-9a-f]{2} -> [0-9a-f]{2}\n`), out.String())
}

func TestWatchStopsOnCancel(t *testing.T) {
	c := NewCLI(t)
	c.CreateRegion()

	ctx, cancel := context.WithCancel(context.Background())
	var out, errOut syncBuffer
	watch := c.Start(ctx, &out, &errOut, "watch", "--interval", "5ms")
	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.Equal(t, 0, watch(), errOut.String())
}

// gateWriter blocks every Write until open is closed.
type gateWriter struct {
	open chan struct{}
	buf  syncBuffer
}

func (w *gateWriter) Write(p []byte) (int, error) {
	<-w.open
	return w.buf.Write(p)
}

func TestWatchLimitWithFullBacklog(t *testing.T) {
	c := NewCLI(t)
	h := c.CreateRegion()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for v := byte(1); ; v++ {
			select {
			case <-done:
				return
			case <-time.After(time.Millisecond):
				h.StoreByte(0x10, v)
			}
		}
	}()

	// The printer stalls on its first line while the poller fills the backlog
	// and blocks in Put. Reaching the limit must still release the poller.
	w := &gateWriter{open: make(chan struct{})}
	o := NewIO(w, io.Discard)
	result := make(chan error, 1)
	go func() {
		result <- watch(context.Background(), o, h.Region(), time.Millisecond, 1, 2)
	}()

	time.Sleep(100 * time.Millisecond)
	close(w.open)

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after reaching its limit")
	}
	assert.Contains(t, w.buf.String(), "change 1:")
}

func TestPrintChangeTruncates(t *testing.T) {
	before := make([]byte, 100)
	after := make([]byte, 100)
	for i := range after {
		after[i] = 1
	}
	var buf bytes.Buffer
	o := NewIO(&buf, io.Discard)

	c := &change{seq: 7, before: before, after: after}
	c.offsets = newBitmapRange(0, 100)
	printChange(o, c)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, watchMaxLines+2)
	assert.Equal(t, "change 7: 100 bytes", lines[0])
	assert.Equal(t, "  0x00000: 00 -> 01", lines[1])
	assert.Equal(t, "  ... 68 more", lines[len(lines)-1])
}

func TestShell(t *testing.T) {
	c := NewCLI(t)
	h := c.CreateRegion()

	script := strings.Join([]string{
		"# comment",
		"write 0x10 0x41",
		"",
		"read 0x10 1",
		"bogus",
		"read",
		"help",
		"exit",
		"write 0x10 0x42",
	}, "\n")
	stdout, stderr, code := c.RunWithInput(script, "shell")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "wrote 1 bytes at 0x10")
	assert.Contains(t, stdout, "00000010  41")
	assert.Contains(t, stdout, "read <off> [n]")
	assert.NotContains(t, stdout, "serve")
	assert.Contains(t, stderr, "unknown command: bogus")
	assert.Contains(t, stderr, ErrArgRequired.Error())
	assert.Equal(t, byte(0x41), h.LoadByte(0x10))
}

func TestServe(t *testing.T) {
	c := NewCLI(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out, errOut syncBuffer
	serve := c.Start(ctx, &out, &errOut, "serve", "--listen", "127.0.0.1:0")

	addr := regexp.MustCompile(`serving on (http://\S+)`)
	var base string
	require.Eventually(t, func() bool {
		m := addr.FindStringSubmatch(out.String())
		if m == nil {
			return false
		}
		base = m[1]
		return true
	}, 5*time.Second, 10*time.Millisecond, errOut.String())
	assert.Contains(t, out.String(), "holding created region")

	for path, code := range map[string]int{"/live": http.StatusOK, "/ready": http.StatusOK} {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, code, resp.StatusCode, path)
	}

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `shmregion_opens_total{result="created"} 1`)
	assert.Contains(t, string(body), "shmregion_live_handles 1")

	// other tools attach to the held region
	assert.Contains(t, c.MustRun("info"), "present:   true")

	cancel()
	require.Equal(t, 0, serve(), errOut.String())
	assert.Contains(t, out.String(), "stopped")

	// not exclusive: the region outlives the server
	assert.Contains(t, c.MustRun("info"), "present:   true")
}

func TestServeExclusiveRemoves(t *testing.T) {
	c := NewCLI(t)
	ctx, cancel := context.WithCancel(context.Background())

	var out, errOut syncBuffer
	serve := c.Start(ctx, &out, &errOut, "serve", "--listen", "127.0.0.1:0", "--exclusive")
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "serving on") },
		5*time.Second, 10*time.Millisecond, errOut.String())
	cancel()
	require.Equal(t, 0, serve(), errOut.String())

	assert.Contains(t, c.MustRun("info"), "present:   false")
}

func TestRm(t *testing.T) {
	c := NewCLI(t)
	h := c.CreateRegion()
	h.StoreByte(0, 1)

	assert.Equal(t, "removed "+filepath.Join(c.Dir, testName), c.MustRun("rm"))
	assert.Contains(t, c.MustRun("info"), "present:   false")
	// the existing mapping stays usable
	assert.Equal(t, byte(1), h.LoadByte(0))
	// removing nothing is fine
	c.MustRun("rm")
}
