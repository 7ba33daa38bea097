// Command shmemctl inspects, edits, snapshots and serves the shared byte region.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/srediag/shmregion/internal/cli"
)

func main() {
	env := make(map[string]string)

	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.RunContext(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args, env)
	stop()
	os.Exit(code)
}
