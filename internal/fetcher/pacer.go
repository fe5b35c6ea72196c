package fetcher

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces fetches apart. Wait blocks until the next fetch may start
// and returns ctx.Err() if ctx is cancelled first.
type Pacer interface {
	Wait(ctx context.Context) error
}

// DelayPacer waits a fixed delay before every fetch.
type DelayPacer struct {
	delay time.Duration
}

// NewDelayPacer creates a DelayPacer.
func NewDelayPacer(delay time.Duration) *DelayPacer {
	return &DelayPacer{delay: delay}
}

// Wait implements Pacer.
func (p *DelayPacer) Wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	return sleepContext(ctx, p.delay)
}

// LimiterPacer shares one token bucket between concurrent workers, one
// token per delay with a burst of one.
type LimiterPacer struct {
	limiter *rate.Limiter
}

// NewLimiterPacer creates a LimiterPacer. A non-positive delay never blocks.
func NewLimiterPacer(delay time.Duration) *LimiterPacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &LimiterPacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait implements Pacer.
func (p *LimiterPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NewPacer returns a DelayPacer for a single worker and a LimiterPacer otherwise.
func NewPacer(delay time.Duration, workers int) Pacer {
	if workers > 1 {
		return NewLimiterPacer(delay)
	}
	return NewDelayPacer(delay)
}
