// Package retry repeats operations that fail transiently, backing off
// exponentially between attempts.
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return sink.Store(ctx, snapshot)
//	}, nil)
//
// Do stops as soon as ctx ends and returns the context error.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config defines the retry behavior.
type Config struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Each further
	// retry doubles it.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait. Zero keeps the backoff library default.
	MaxBackoff time.Duration

	// Jitter randomizes each wait by up to this fraction (0.0 to 1.0).
	Jitter float64
}

// DefaultConfig returns the policy used for snapshot storage and engine
// restarts.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     2,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
		Jitter:         0.1,
	}
}

// ShouldRetryFunc reports whether err is worth another attempt. A nil
// ShouldRetryFunc retries every error.
type ShouldRetryFunc func(error) bool

// Do calls fn until it succeeds, shouldRetry rejects its error, the retries
// run out or ctx ends.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	var (
		attempts  int
		permanent bool
	)

	op := func() error {
		attempts++
		err := fn()
		if err != nil && shouldRetry != nil && !shouldRetry(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}

	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(cfg), uint64(retries)), ctx)

	err := backoff.Retry(op, policy)
	if err == nil || permanent || ctx.Err() != nil {
		return err
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

func newBackOff(cfg Config) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if cfg.InitialBackoff > 0 {
		b.InitialInterval = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		b.MaxInterval = cfg.MaxBackoff
	}
	b.RandomizationFactor = cfg.Jitter
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
