// Package record implements the record command, which runs the profiler
// continuously and stores snapshots locally.
package record

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coral-mesh/coral-asprof/internal/agent/profiler"
	"github.com/coral-mesh/coral-asprof/internal/asprof"
	"github.com/coral-mesh/coral-asprof/internal/cli/helpers"
	"github.com/coral-mesh/coral-asprof/internal/config"
	"github.com/coral-mesh/coral-asprof/internal/duckdb"
	"github.com/coral-mesh/coral-asprof/internal/errors"
)

type recordFlags struct {
	event          string
	interval       time.Duration
	uploadInterval time.Duration
	duration       time.Duration
	dbPath         string
	metricsAddr    string
}

func (f *recordFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("event") {
		cfg.Event = f.event
	}
	if changed("interval") {
		cfg.Interval = f.interval
	}
	if changed("upload-interval") {
		cfg.UploadInterval = f.uploadInterval
	}
	if changed("db") {
		cfg.Storage.Path = f.dbPath
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

// NewRecordCmd creates the record command.
func NewRecordCmd(opts *helpers.GlobalOptions) *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Profile this process continuously into the local snapshot database",
		Long: `Deploys and loads the profiler library, then dumps a snapshot every
upload interval into the local DuckDB database until interrupted or until
--duration elapses. Consecutive snapshots cover adjacent time windows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if flags.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, flags.duration)
				defer cancel()
			}

			return run(ctx, cfg, helpers.Logger(cfg))
		},
	}

	cmd.Flags().StringVar(&flags.event, "event", "", "Sampling event (cpu, alloc, lock, wall, itimer)")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "Sampling interval")
	cmd.Flags().DurationVar(&flags.uploadInterval, "upload-interval", 0, "Time between snapshots")
	cmd.Flags().DurationVar(&flags.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "Snapshot database path")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	deployer, err := asprof.Init(ctx, logger, helpers.DeployOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to deploy profiler library: %w", err)
	}
	engine, err := deployer.Engine(ctx)
	if err != nil {
		return err
	}

	db, err := duckdb.OpenDB(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer errors.DeferClose(logger, db, "Failed to close snapshot database")

	storage, err := profiler.NewStorage(db, logger)
	if err != nil {
		return fmt.Errorf("failed to create snapshot storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	errors.Must(registry.Register(collectors.NewGoCollector()), "failed to register go collector")
	errors.Must(registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})), "failed to register process collector")
	metrics, err := profiler.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register profiler metrics: %w", err)
	}

	session, err := profiler.NewSession(engine, logger, profiler.SessionConfig{
		EventType: cfg.EventType(),
		Interval:  cfg.Interval,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	continuous, err := profiler.NewContinuousProfiler(ctx, session, storage, logger, profiler.ContinuousConfig{
		UploadInterval: cfg.UploadInterval,
		FlushOnStop:    true,
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}

	if err := continuous.Start(); err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Metrics.Addr)
		if err != nil {
			continuous.Stop()
			return fmt.Errorf("failed to listen on %s: %w", cfg.Metrics.Addr, err)
		}
		g.Go(func() error {
			return serveMetrics(gctx, ln, registry, logger)
		})
	}

	logger.Info().
		Str("platform", deployer.Identifier().String()).
		Str("session_id", session.ID()).
		Str("database", cfg.Storage.Path).
		Msg("Recording")

	g.Go(func() error {
		storage.RunCleanupLoop(gctx, cfg.Storage.Retention, cfg.Storage.CleanupInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		continuous.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Str("session_id", session.ID()).Msg("Recording stopped")
	return nil
}
