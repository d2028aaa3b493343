package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/sketch/pkg/cli"
	"mercator-hq/sketch/pkg/scheduler"
	"mercator-hq/sketch/pkg/server"
	"mercator-hq/sketch/pkg/telemetry/health"
)

type serveFlags struct {
	listenAddress string
	dryRun        bool
}

func newServeCmd(global *globalFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the generation API together with health, readiness and metrics
endpoints, and run the housekeeping scheduler. Stops gracefully on SIGINT or
SIGTERM.

Examples:
  sketch serve
  sketch serve --config /etc/sketch/config.yaml --listen 0.0.0.0:8420
  sketch serve --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, global, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.listenAddress, "listen", "l", "", "override listen address")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "validate config and wiring without serving")
	return cmd
}

func runServe(cmd *cobra.Command, global *globalFlags, flags *serveFlags) error {
	a, err := newApp(global, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if flags.listenAddress != "" {
		a.cfg.Server.ListenAddress = flags.listenAddress
	}

	checker := health.New(0)
	checker.RegisterCheck("storage", health.StoreCheck(a.store))
	checker.RegisterCheck("registry", health.CatalogCheck(a.registry))

	opts := server.Options{
		Config:    a.cfg.Server,
		Generator: a.orchestrator,
		Catalog:   a.registry,
		Keys:      a.secrets,
		Health:    checker,
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
		Logger:    a.logger,
	}
	if a.collector.Enabled() {
		opts.Metrics = a.collector.Handler()
		opts.MetricsPath = a.cfg.Telemetry.Metrics.Path
	}

	srv, err := server.New(opts)
	if err != nil {
		return err
	}

	jobs := a.cfg.SchedulerJobs()
	jobs.Logger = a.logger
	sched := scheduler.New(jobs, a.limiter, a.tracker)

	if flags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration valid. Would listen on %s with %d providers.\n",
			a.cfg.Server.ListenAddress, len(a.registry.IDs()))
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		sched.Stop()
		return nil
	})

	return g.Wait()
}
