package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces successive calls at least MinInterval apart across every
// goroutine that shares it. A nil Pacer or a zero interval never waits.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer admitting one call per interval, with the first
// call admitted immediately.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
