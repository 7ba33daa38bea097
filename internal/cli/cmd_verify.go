package cli

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/srediag/shmregion/pkg/shm"
)

const (
	defaultVerifyWorkers = 4
	defaultVerifyChunk   = 4096
)

func verifyCmd(e *Env) *Command {
	flags := newFlags("verify")
	workers := flags.Int("workers", defaultVerifyWorkers, "Parallel workers")
	chunk := flags.Int("chunk", defaultVerifyChunk, "Bytes per work item")

	return &Command{
		Flags: flags,
		Usage: "verify [--workers n] [--chunk n]",
		Short: "Write and read back a test pattern over the whole region",
		Long: `Check that every byte of the region stores and returns values. Each chunk is
saved, overwritten with two complementary patterns that are read back, then
restored. Other processes must not write to the region while verify runs.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 0, 0, ""); err != nil {
				return err
			}
			if *workers <= 0 || *chunk <= 0 {
				return fmt.Errorf("workers and chunk must be positive")
			}
			h, err := e.attach(ctx)
			if err != nil {
				return err
			}
			defer h.Release()

			chunks, mismatches, err := verifyRegion(h.Region(), *workers, *chunk)
			if err != nil {
				return err
			}
			o.Printf("verified %d chunks over %#x bytes, %d mismatches\n", chunks, h.Region().Capacity(), mismatches)
			if mismatches > 0 {
				return fmt.Errorf("%w: %d", ErrVerifyMismatch, mismatches)
			}
			return nil
		},
	}
}

func verifyRegion(r *shm.Region, workers, chunk int) (int, int64, error) {
	pool, err := ants.NewPool(workers)
	if err != nil {
		return 0, 0, fmt.Errorf("worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg         sync.WaitGroup
		mismatches atomic.Int64
		chunks     int
	)
	capacity := r.Capacity()
	for start := 0; start < capacity; start += chunk {
		end := min(start+chunk, capacity)
		wg.Add(1)
		chunks++
		err := pool.Submit(func() {
			defer wg.Done()
			mismatches.Add(verifyChunk(r, uint32(start), uint32(end)))
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return chunks, mismatches.Load(), fmt.Errorf("submit chunk %#x: %w", start, err)
		}
	}
	wg.Wait()
	return chunks, mismatches.Load(), nil
}

func verifyChunk(r *shm.Region, start, end uint32) int64 {
	saved := make([]byte, end-start)
	_, _ = r.ReadAt(saved, int64(start))
	defer func() { _, _ = r.WriteAt(saved, int64(start)) }()

	var bad int64
	for _, mask := range []byte{0x55, 0xaa} {
		for off := start; off < end; off++ {
			r.StoreByte(off, byte(off)^mask)
		}
		for off := start; off < end; off++ {
			if r.LoadByte(off) != byte(off)^mask {
				bad++
			}
		}
	}
	return bad
}
