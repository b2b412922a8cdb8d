// Package retry retries transient failures with a configurable backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/docblog/internal/config"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // maximum retry attempts after the first failure
}

// DefaultPolicy returns the default policy (linear, 1s initial, 30s cap, 2 retries).
func DefaultPolicy() Policy {
	return Policy{
		Mode:       config.DefaultRetryMode,
		Initial:    config.DefaultRetryDelay,
		Max:        config.DefaultRetryMax,
		MaxRetries: config.DefaultMaxRetries,
	}
}

// NewPolicy builds a policy from raw fields; zero or unknown values fall
// back to defaults and a negative maxRetries disables retries.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	switch {
	case maxRetries < 0:
		p.MaxRetries = 0
	case maxRetries > 0:
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromConfig builds the policy described by cfg.
func FromConfig(cfg config.RetryConfig) Policy {
	return NewPolicy(cfg.Backoff, cfg.Initial.Std(), cfg.Max.Std(), cfg.MaxRetries)
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Retryable reports whether err is a classified error marked for retry.
func Retryable(err error) bool {
	ce, ok := errors.AsClassified(err)
	return ok && ce.CanRetry()
}

// Do runs fn until it succeeds, fails with an error shouldRetry rejects,
// or the retries are used up. A nil shouldRetry uses Retryable. onRetry,
// when set, is called before each wait.
func (p Policy) Do(ctx context.Context, shouldRetry func(error) bool, onRetry func(attempt int, err error), fn func() error) error {
	if shouldRetry == nil {
		shouldRetry = Retryable
	}
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !shouldRetry(err) {
			return err
		}
		if onRetry != nil {
			onRetry(attempt+1, err)
		}
		timer := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
