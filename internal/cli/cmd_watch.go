package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/Workiva/go-datastructures/queue"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/srediag/shmregion/pkg/shm"
)

const (
	defaultWatchInterval = 100 * time.Millisecond
	watchBacklog         = 16
	watchMaxLines        = 32
)

// change is one poll's worth of modified offsets.
type change struct {
	seq     int
	offsets *roaring.Bitmap
	before  []byte
	after   []byte
}

func watchCmd(e *Env) *Command {
	flags := newFlags("watch")
	interval := flags.Duration("interval", defaultWatchInterval, "Poll interval")
	limit := flags.Int("limit", 0, "Stop after this many changes (0 = until interrupted)")

	return &Command{
		Flags: flags,
		Usage: "watch [--interval d] [--limit n]",
		Short: "Print bytes as other processes change them",
		Long: `Poll the region and print every offset whose value changed since the
previous poll. Changes that happen and revert between two polls are not seen.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 0, 0, ""); err != nil {
				return err
			}
			if *interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", *interval)
			}
			h, err := e.attach(ctx)
			if err != nil {
				return err
			}
			defer h.Release()

			o.Printf("watching %s every %s\n", h.Region().ID(), *interval)
			return watch(ctx, o, h.Region(), *interval, *limit, watchBacklog)
		},
	}
}

// watch runs a poller and a printer joined by a ring buffer of backlog changes.
// Either side disposing the buffer unblocks the other.
func watch(ctx context.Context, o *IO, r *shm.Region, interval time.Duration, limit int, backlog uint64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rb := queue.NewRingBuffer(backlog)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer rb.Dispose()
		return pollChanges(ctx, r, interval, rb)
	})
	g.Go(func() error {
		defer cancel()
		defer rb.Dispose()
		for n := 0; limit <= 0 || n < limit; n++ {
			item, err := rb.Get()
			if err != nil {
				return nil
			}
			printChange(o, item.(*change))
		}
		return nil
	})
	return g.Wait()
}

func pollChanges(ctx context.Context, r *shm.Region, interval time.Duration, rb *queue.RingBuffer) error {
	prev := make([]byte, r.Capacity())
	if _, err := r.ReadAt(prev, 0); err != nil {
		return err
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	for seq := 1; ; {
		if err := lim.Wait(ctx); err != nil {
			return nil
		}
		cur := make([]byte, r.Capacity())
		if _, err := r.ReadAt(cur, 0); err != nil {
			return err
		}
		offsets := roaring.New()
		for i := range cur {
			if cur[i] != prev[i] {
				offsets.Add(uint32(i))
			}
		}
		if offsets.IsEmpty() {
			continue
		}
		if err := rb.Put(&change{seq: seq, offsets: offsets, before: prev, after: cur}); err != nil {
			return nil
		}
		seq++
		prev = cur
	}
}

func printChange(o *IO, c *change) {
	o.Printf("change %d: %d bytes\n", c.seq, c.offsets.GetCardinality())
	it := c.offsets.Iterator()
	for lines := 0; it.HasNext(); lines++ {
		off := it.Next()
		if lines == watchMaxLines {
			o.Printf("  ... %d more\n", c.offsets.GetCardinality()-watchMaxLines)
			return
		}
		o.Printf("  0x%05x: %02x -> %02x\n", off, c.before[off], c.after[off])
	}
}
