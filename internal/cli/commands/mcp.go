package commands

import (
	"context"
	"errors"
	"flag"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/maestro/maestro/internal/cliopt"
	"github.com/maestro/maestro/internal/cliutil"
	"github.com/maestro/maestro/internal/logger"
	"github.com/maestro/maestro/internal/mcp"
	"github.com/maestro/maestro/internal/metrics"
)

// RunMCP serves the library to MCP clients over stdio until ctx is done or
// stdin closes. With --metrics-addr the library's metrics are served over
// HTTP alongside.
func RunMCP(ctx context.Context, g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(cliutil.Stderr)
	var metricsAddr string
	fs.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	log := cliutil.NewLogger(g)
	opts := cliutil.LibraryOptions(g)
	var reg *prometheus.Registry
	if metricsAddr != "" {
		reg = prometheus.NewRegistry()
		opts.Metrics = reg
	}
	lib, err := cliutil.OpenLibraryWithOptions(ctx, g, opts)
	if err != nil {
		return cliutil.Fail(err)
	}
	defer lib.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	if reg != nil {
		srv := metrics.NewServer(metricsAddr, reg, logger.Component(log, "metrics"))
		eg.Go(func() error { return srv.Run(ctx) })
	}
	eg.Go(func() error {
		// stdin closing ends the session, and with it the metrics endpoint.
		defer cancel()
		return mcp.NewServer(lib, log).Serve(ctx)
	})
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return cliutil.Fail(err)
	}
	return 0
}
