// Package retryutil provides generic retry-with-backoff helpers. No other
// package in this module calls them: the volume service and the child state
// machine's claim path do not retry.
package retryutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"k8s.io/klog/v2"
)

// Config configures retry behavior. Zero values fall back to the defaults
// from DefaultConfig.
//
//nolint:govet // fieldalignment: field order prioritizes readability over memory optimization.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the ceiling on any single backoff interval.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// RetryableFunc determines if an error is retryable. If nil, all
	// errors are considered retryable.
	RetryableFunc func(error) bool

	// OperationName is used for logging purposes.
	OperationName string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		OperationName:     "operation",
	}
}

// ErrMaxRetriesExceeded is returned when all retry attempts have been exhausted.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 1 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2.0
	}
	if c.OperationName == "" {
		c.OperationName = "operation"
	}
	return c
}

func (c Config) newBackoff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.InitialBackoff
	eb.MaxInterval = c.MaxBackoff
	eb.Multiplier = c.BackoffMultiplier
	eb.MaxElapsedTime = 0 // bounded by MaxAttempts via backoff.WithMaxRetries instead
	return backoff.WithMaxRetries(eb, uint64(c.MaxAttempts-1))
}

// WithRetry executes fn with retry and exponential backoff, built on top of
// github.com/cenkalti/backoff/v4. It uses generics so any return type can be
// threaded through.
func WithRetry[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	var zero T

	var result T
	var permanentErr error
	attempt := 0
	op := func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			permanentErr = err
			return backoff.Permanent(err)
		}

		var err error
		result, err = fn()
		if err == nil {
			if attempt > 1 {
				klog.V(4).Infof("retryutil: %s succeeded on attempt %d", cfg.OperationName, attempt)
			}
			return nil
		}

		if cfg.RetryableFunc != nil && !cfg.RetryableFunc(err) {
			klog.V(4).Infof("retryutil: %s failed with non-retryable error: %v", cfg.OperationName, err)
			permanentErr = err
			return backoff.Permanent(err)
		}

		klog.V(4).Infof("retryutil: %s failed on attempt %d/%d: %v", cfg.OperationName, attempt, cfg.MaxAttempts, err)
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(cfg.newBackoff(), ctx))
	if err != nil {
		// backoff.Retry already unwraps a PermanentError, so whether the
		// error was permanent is tracked here rather than read back from err.
		if permanentErr != nil {
			return zero, permanentErr
		}
		return zero, fmt.Errorf("%w: %s failed after %d attempts: %w", ErrMaxRetriesExceeded, cfg.OperationName, attempt, err)
	}
	return result, nil
}

// WithRetryNoResult executes fn, which returns only an error, with retry logic.
func WithRetryNoResult(ctx context.Context, cfg Config, fn func() error) error {
	_, err := WithRetry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// IsRetryableNetworkError returns true if the error looks like a transient
// network-level failure worth retrying.
func IsRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, sub := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"network is unreachable",
		"no route to host",
		"connection timed out",
		"EOF",
		"use of closed network connection",
	} {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
