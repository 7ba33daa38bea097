package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/srediag/shmregion/pkg/health"
	"github.com/srediag/shmregion/pkg/lifecycle"
	"github.com/srediag/shmregion/pkg/shm"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(e *Env) *Command {
	flags := newFlags("serve")
	listen := flags.String("listen", "", "Address for /live, /ready and /metrics (default from config)")
	exclusive := flags.Bool("exclusive", false, "Remove the region on exit if this process created it")

	return &Command{
		Flags: flags,
		Usage: "serve [--listen addr] [--exclusive]",
		Short: "Create and hold the region, serving health and metrics",
		Long: `Create the region (or attach if it already exists) and keep it mapped until
interrupted, so that tools can attach at any time. Serves liveness on /live,
readiness on /ready and Prometheus metrics on /metrics.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := requireArgs(args, 0, 0, ""); err != nil {
				return err
			}
			addr := e.Config.Listen
			if *listen != "" {
				addr = *listen
			}
			ownership := shm.OwnershipShared
			if *exclusive {
				ownership = shm.OwnershipExclusive
			}
			return serve(ctx, o, e, addr, ownership)
		},
	}
}

func serve(ctx context.Context, o *IO, e *Env, addr string, ownership shm.Ownership) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cfg := e.Config.Region(shm.PolicyCreateOrOpen)
	cfg.Metrics = shm.NewMetrics(registry)
	holder := lifecycle.NewHolder(cfg, ownership)
	if err := holder.Start(ctx); err != nil {
		return err
	}
	defer holder.Stop()

	checks := health.NewHandler(registry, holder, 0)
	mux := http.NewServeMux()
	mux.HandleFunc("/live", checks.LiveEndpoint)
	mux.HandleFunc("/ready", checks.ReadyEndpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	r := holder.Handle().Region()
	o.Printf("holding %s region %s at %s\n", r.Origin(), r.ID(), r.LinkPath())
	o.Printf("serving on http://%s\n", ln.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	o.Println("stopped")
	return nil
}
