package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Retry policy defaults.
const (
	DefaultRetries      = 2
	DefaultRetryBackoff = 1 * time.Second
	MaxRetryBackoff     = 30 * time.Second

	// maxRetryAfter caps how long a server's Retry-After hint is honored.
	maxRetryAfter = 120 * time.Second
)

// RetryPolicy configures a Retrier.
type RetryPolicy struct {
	// Retries is the number of extra attempts after the first. 0 disables retries.
	Retries int

	// Backoff is the delay before the first retry; it doubles for each further retry.
	Backoff time.Duration

	// MaxBackoff caps a single delay.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns the default policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:    DefaultRetries,
		Backoff:    DefaultRetryBackoff,
		MaxBackoff: MaxRetryBackoff,
	}
}

// delay returns the wait before retry number attempt (1-based).
func (p RetryPolicy) delay(attempt int, err *Error) time.Duration {
	if err != nil && err.RetryAfter > 0 {
		if d := time.Duration(err.RetryAfter) * time.Second; d <= maxRetryAfter {
			return d
		}
	}

	d := p.Backoff << (attempt - 1)
	maxDelay := p.MaxBackoff
	if maxDelay <= 0 {
		maxDelay = MaxRetryBackoff
	}
	if d <= 0 || d > maxDelay {
		d = maxDelay
	}
	return d
}

// Retrier wraps a Fetcher with a status-aware retry policy.
//
// Each attempt runs detached from ctx cancellation, so a request that is
// already on the wire finishes or times out on its own. Cancellation only
// cuts the backoff waits short, in which case ctx.Err() is returned.
type Retrier struct {
	next   Fetcher
	policy RetryPolicy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier wraps next with policy. A nil logger uses slog.Default().
func NewRetrier(next Fetcher, policy RetryPolicy, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		next:   next,
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Fetch implements Fetcher.
func (r *Retrier) Fetch(ctx context.Context, url string) (*Response, error) {
	attemptCtx := context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 0; attempt <= r.policy.Retries; attempt++ {
		if attempt > 0 {
			var fe *Error
			errors.As(lastErr, &fe)
			d := r.policy.delay(attempt, fe)
			r.logger.Info("retrying fetch", "url", url, "attempt", attempt, "backoff", d, "error", lastErr)
			if err := r.sleep(ctx, d); err != nil {
				return nil, err
			}
		}

		resp, err := r.next.Fetch(attemptCtx, url)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var fe *Error
		if !errors.As(err, &fe) || !fe.Retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
