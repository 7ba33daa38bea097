package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/srediag/shmregion/pkg/shm"
)

const defaultWaitTimeout = 30 * time.Second

func waitCmd(e *Env) *Command {
	flags := newFlags("wait")
	timeout := flags.Duration("timeout", defaultWaitTimeout, "Give up after this long (0 = wait forever)")

	return &Command{
		Flags: flags,
		Usage: "wait [--timeout d]",
		Short: "Block until a creator has published the region",
		Long: `Retry attaching to the region with exponential backoff until it is present
or the timeout expires. Configuration and mapping errors stop the wait at once.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 0, 0, ""); err != nil {
				return err
			}
			start := time.Now()
			h, err := waitForRegion(ctx, e, *timeout)
			if err != nil {
				return err
			}
			defer h.Release()
			o.Printf("region %s present after %s\n", h.Region().ID(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func waitForRegion(ctx context.Context, e *Env, timeout time.Duration) (*shm.Handle, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = timeout

	var h *shm.Handle
	op := func() error {
		var err error
		h, err = e.attach(ctx)
		if errors.Is(err, ErrRegionAbsent) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("waiting for region: %w", err)
	}
	return h, nil
}
