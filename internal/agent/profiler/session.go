// Package profiler drives a loaded sampling engine: a Session serializes
// start and dump calls into gapless snapshots, and a ContinuousProfiler dumps
// them on a fixed schedule.
package profiler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/coral-asprof/internal/asprof"
)

// ErrNotStarted is returned by Dump when no sampling window is open.
var ErrNotStarted = errors.New("profiling is not started")

// Snapshot is the raw output of one sampling window.
type Snapshot struct {
	SessionID   string
	EventType   asprof.EventType
	WindowStart time.Time
	WindowEnd   time.Time
	// RawSamples holds collapsed stacks exactly as the engine produced them.
	RawSamples string
}

// Duration returns the length of the sampling window.
func (s *Snapshot) Duration() time.Duration {
	return s.WindowEnd.Sub(s.WindowStart)
}

// SessionConfig holds configuration for a profiling session.
type SessionConfig struct {
	EventType asprof.EventType
	Interval  time.Duration // Engine sampling period
	Metrics   *Metrics      // Optional
	Clock     func() time.Time
}

// Session owns the engine and the currently open sampling window.
type Session struct {
	id        string
	engine    asprof.Engine
	eventType asprof.EventType
	interval  time.Duration
	metrics   *Metrics
	now       func() time.Time
	logger    zerolog.Logger

	mu sync.Mutex
	// windowStart is zero exactly when the engine is not accumulating.
	windowStart time.Time
}

// NewSession creates a new profiling session. Nothing is sampled until Start.
func NewSession(engine asprof.Engine, logger zerolog.Logger, cfg SessionConfig) (*Session, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sampling interval must be positive, got %s", cfg.Interval)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	id := uuid.New().String()

	return &Session{
		id:        id,
		engine:    engine,
		eventType: cfg.EventType,
		interval:  cfg.Interval,
		metrics:   cfg.Metrics,
		now:       cfg.Clock,
		logger: logger.With().
			Str("component", "profiling_session").
			Str("session_id", id).
			Logger(),
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Started reports whether a sampling window is open.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.windowStart.IsZero()
}

// Start begins a sampling window. Calling it while a window is open discards
// that window and opens a new one.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.startLocked(s.now()); err != nil {
		return err
	}

	s.logger.Info().
		Str("event", s.eventType.Name).
		Dur("interval", s.interval).
		Msg("Profiling started")

	return nil
}

func (s *Session) startLocked(at time.Time) error {
	if err := s.engine.Start(s.eventType, s.interval.Nanoseconds()); err != nil {
		s.windowStart = time.Time{}
		return fmt.Errorf("failed to start engine: %w", err)
	}
	s.windowStart = at
	s.metrics.observeStart()
	return nil
}

// minWindow is the shortest window a Dump produces. It matches the
// microsecond precision of stored timestamps, so consecutive windows never
// share a stored start.
const minWindow = time.Microsecond

// Dump closes the open window, returns its samples and immediately opens the
// next window starting at the returned snapshot's WindowEnd.
//
// If the engine cannot be restarted the snapshot is still returned, along
// with the error, and the session goes back to not started.
func (s *Session) Dump() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dumpLocked(true)
}

// Close collects the open window and leaves the engine stopped. It returns
// ErrNotStarted when no window is open.
func (s *Session) Close() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.dumpLocked(false)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Msg("Profiling stopped")

	return snapshot, nil
}

func (s *Session) dumpLocked(restart bool) (*Snapshot, error) {
	if s.windowStart.IsZero() {
		return nil, ErrNotStarted
	}

	began := time.Now()
	start := s.windowStart
	end := s.now()
	if end.Sub(start) < minWindow {
		end = start.Add(minWindow)
	}

	raw, err := s.engine.DumpCollapsed(asprof.CounterSamples)
	s.windowStart = time.Time{}
	if err != nil {
		s.metrics.observeDump(dumpResultError, time.Since(began), 0)
		return nil, fmt.Errorf("failed to dump samples: %w", err)
	}

	snapshot := &Snapshot{
		SessionID:   s.id,
		EventType:   s.eventType,
		WindowStart: start,
		WindowEnd:   end,
		RawSamples:  raw,
	}

	if restart {
		if err := s.startLocked(end); err != nil {
			s.metrics.observeDump(dumpResultRestartFailed, time.Since(began), len(raw))
			return snapshot, err
		}
	}

	s.metrics.observeDump(dumpResultOK, time.Since(began), len(raw))

	s.logger.Debug().
		Time("window_start", start).
		Time("window_end", end).
		Int("bytes", len(raw)).
		Msg("Snapshot dumped")

	return snapshot, nil
}
