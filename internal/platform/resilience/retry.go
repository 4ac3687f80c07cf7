// Package resilience provides the retry policy and the pacing gate used
// around remote model calls.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a bounded exponential backoff with jitter. Zero Attempts, Min and
// Max take the values from DefaultPolicy.
type Policy struct {
	Attempts int
	Min      time.Duration
	Max      time.Duration
	// Jitter is the randomization factor applied to each delay, in [0, 1].
	Jitter float64

	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error except context cancellation.
	Retryable func(error) bool
	// RetryAfter extracts a server-requested delay from an error. When it
	// exceeds the computed backoff the server's delay is used instead.
	RetryAfter func(error) time.Duration
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)

	timer backoff.Timer
}

// DefaultPolicy returns five attempts with delays between one second and
// one minute.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 5,
		Min:      time.Second,
		Max:      60 * time.Second,
		Jitter:   0.5,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.Min <= 0 {
		p.Min = d.Min
	}
	if p.Max <= 0 {
		p.Max = d.Max
	}
	if p.Max < p.Min {
		p.Max = p.Min
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		p.Jitter = d.Jitter
	}
	return p
}

// MaxAttempts is the attempt budget after defaults are applied.
func (p Policy) MaxAttempts() int {
	return p.withDefaults().Attempts
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is done. fn receives the 1-based attempt number. The
// returned error is the last one fn produced, or ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	p = p.withDefaults()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Min
	exp.MaxInterval = p.Max
	exp.Multiplier = 2
	exp.RandomizationFactor = p.Jitter
	exp.MaxElapsedTime = 0
	exp.Reset()

	hinted := &serverHint{BackOff: backoff.WithMaxRetries(exp, uint64(p.Attempts-1))}
	bo := backoff.WithContext(hinted, ctx)

	attempt := 0
	op := func() error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if !p.retryable(err) {
			return backoff.Permanent(err)
		}
		if p.RetryAfter != nil {
			hinted.next = p.RetryAfter(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
	}

	var err error
	if p.timer != nil {
		err = backoff.RetryNotifyWithTimer(op, bo, notify, p.timer)
	} else {
		err = backoff.RetryNotify(op, bo, notify)
	}
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		return ctx.Err()
	}
	return err
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return !errors.Is(err, context.Canceled)
}

// serverHint stretches the next delay to a server-provided minimum.
type serverHint struct {
	backoff.BackOff
	next time.Duration
}

func (s *serverHint) NextBackOff() time.Duration {
	d := s.BackOff.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	if s.next > d {
		d = s.next
	}
	s.next = 0
	return d
}
