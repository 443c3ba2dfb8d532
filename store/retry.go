package store

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig controls how RetryBackend retries failed backend calls.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, the first one included.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
	// Multiplier for exponential backoff.
	Multiplier float64
	// Jitter is the fraction of each delay randomized, in [0, 1].
	Jitter float64
	// ShouldRetry reports whether err is worth another attempt. Missing keys and
	// context errors are never retried.
	ShouldRetry func(err error) bool
	// OnRetry is called before each retry.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig returns the configuration used for zero fields.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
		ShouldRetry:  func(error) bool { return true },
		OnRetry:      func(int, time.Duration, error) {},
	}
}

// RetryBackend retries the calls of another Backend with exponential backoff.
type RetryBackend struct {
	next Backend
	cfg  RetryConfig
}

var _ Backend = (*RetryBackend)(nil)

// NewRetryBackend wraps next. Zero fields of cfg take their defaults.
func NewRetryBackend(next Backend, cfg RetryConfig) *RetryBackend {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = def.Jitter
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = def.ShouldRetry
	}
	if cfg.OnRetry == nil {
		cfg.OnRetry = def.OnRetry
	}
	return &RetryBackend{next: next, cfg: cfg}
}

func (r *RetryBackend) Put(ctx context.Context, key string, data []byte) error {
	return r.execute(ctx, func(ctx context.Context) error {
		return r.next.Put(ctx, key, data)
	})
}

func (r *RetryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.execute(ctx, func(ctx context.Context) error {
		var err error
		data, err = r.next.Get(ctx, key)
		return err
	})
	return data, err
}

func (r *RetryBackend) Delete(ctx context.Context, key string) error {
	return r.execute(ctx, func(ctx context.Context) error {
		return r.next.Delete(ctx, key)
	})
}

func (r *RetryBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.execute(ctx, func(ctx context.Context) error {
		var err error
		keys, err = r.next.List(ctx, prefix)
		return err
	})
	return keys, err
}

func (r *RetryBackend) execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.retryable(err) || attempt == r.cfg.MaxAttempts-1 {
			break
		}

		delay := r.delay(attempt)
		r.cfg.OnRetry(attempt+1, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (r *RetryBackend) retryable(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return r.cfg.ShouldRetry(err)
}

func (r *RetryBackend) delay(attempt int) time.Duration {
	d := float64(r.cfg.InitialDelay) * math.Pow(r.cfg.Multiplier, float64(attempt))
	if d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	if r.cfg.Jitter > 0 {
		d += (rand.Float64() - 0.5) * 2 * d * r.cfg.Jitter
	}
	return time.Duration(max(d, 0))
}
