package profiler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/coral-asprof/internal/constants"
	"github.com/coral-mesh/coral-asprof/internal/retry"
)

// ContinuousConfig holds configuration for continuous profiling.
type ContinuousConfig struct {
	UploadInterval time.Duration // Time between dumps (default: 10s)
	FlushOnStop    bool          // Store the final window when stopping
	Metrics        *Metrics      // Optional
	// Retry applies to sink writes and engine restarts. The zero value
	// means retry.DefaultConfig().
	Retry retry.Config
}

// ContinuousProfiler dumps a session on a fixed schedule and hands every
// snapshot to a sink.
type ContinuousProfiler struct {
	session *Session
	sink    SnapshotSink
	logger  zerolog.Logger
	config  ContinuousConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// NewContinuousProfiler creates a new continuous profiler bound to parentCtx.
func NewContinuousProfiler(
	parentCtx context.Context,
	session *Session,
	sink SnapshotSink,
	logger zerolog.Logger,
	config ContinuousConfig,
) (*ContinuousProfiler, error) {
	if parentCtx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("snapshot sink is required")
	}
	if config.UploadInterval == 0 {
		config.UploadInterval = constants.DefaultUploadInterval
	}
	if config.UploadInterval < 0 {
		return nil, fmt.Errorf("upload interval must be positive, got %s", config.UploadInterval)
	}
	if config.Retry == (retry.Config{}) {
		config.Retry = retry.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(parentCtx)

	return &ContinuousProfiler{
		session: session,
		sink:    sink,
		logger:  logger.With().Str("component", "continuous_profiler").Logger(),
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start opens the first window and begins the dump loop.
func (p *ContinuousProfiler) Start() error {
	if err := p.session.Start(); err != nil {
		p.cancel()
		return err
	}

	p.logger.Info().
		Str("session_id", p.session.ID()).
		Dur("upload_interval", p.config.UploadInterval).
		Msg("Starting continuous profiling")

	p.wg.Add(1)
	go p.loop()

	return nil
}

// Stop ends the dump loop, leaves the engine stopped and waits for the loop
// to exit. It is safe to call more than once.
func (p *ContinuousProfiler) Stop() {
	p.once.Do(func() {
		p.logger.Info().Msg("Stopping continuous profiling")
		p.cancel()
	})
	p.wg.Wait()
}

// Done is closed once the profiler has been stopped or its parent context ends.
func (p *ContinuousProfiler) Done() <-chan struct{} {
	return p.ctx.Done()
}

func (p *ContinuousProfiler) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.UploadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			p.shutdown()
			return
		case <-ticker.C:
			p.dumpAndStore(p.ctx)
		}
	}
}

// shutdown stops the engine. With FlushOnStop the final window is stored,
// otherwise it is discarded.
func (p *ContinuousProfiler) shutdown() {
	snapshot, err := p.session.Close()
	if err != nil {
		if !errors.Is(err, ErrNotStarted) {
			p.logger.Error().Err(err).Msg("Failed to stop profiling")
		}
		return
	}
	if !p.config.FlushOnStop {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer cancel()
	p.store(ctx, snapshot)
}

// dumpAndStore takes one snapshot. A session that lost its window is
// restarted so the next tick produces data again.
func (p *ContinuousProfiler) dumpAndStore(ctx context.Context) {
	snapshot, err := p.session.Dump()
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to dump profiling snapshot")

		if !p.session.Started() && p.ctx.Err() == nil {
			if err := retry.Do(p.ctx, p.config.Retry, p.session.Start, nil); err != nil {
				p.logger.Error().Err(err).Msg("Failed to restart profiling")
			}
		}
		if snapshot == nil {
			return
		}
	}

	p.store(ctx, snapshot)
}

func (p *ContinuousProfiler) store(ctx context.Context, snapshot *Snapshot) {
	err := retry.Do(ctx, p.config.Retry, func() error {
		return p.sink.Store(ctx, snapshot)
	}, func(error) bool {
		return ctx.Err() == nil
	})
	p.config.Metrics.observeStore(err)
	if err != nil {
		p.logger.Error().
			Err(err).
			Time("window_start", snapshot.WindowStart).
			Time("window_end", snapshot.WindowEnd).
			Msg("Failed to store profiling snapshot")
		return
	}

	p.logger.Debug().
		Time("window_start", snapshot.WindowStart).
		Time("window_end", snapshot.WindowEnd).
		Int("bytes", len(snapshot.RawSamples)).
		Msg("Stored profiling snapshot")
}
