package retry

import (
	"context"
	"math"
	"time"
)

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the delay to sleep before retry number attempt (1-based)
	NextDelay(attempt int) time.Duration
	// Reset resets the backoff strategy to initial state
	Reset()
}

// LogLinearBackoff interpolates delays linearly in log space between
// MinDelay (first retry) and MaxDelay (last retry of a MaxTries budget).
// With 1s/60s over 5 tries the sleeps are 1s, 4s, 15s, 60s.
type LogLinearBackoff struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// MaxTries is the full attempt budget the schedule is spread across
	MaxTries int
	// Resolution delays are rounded to; defaults to one second
	Resolution time.Duration
}

// DefaultLogLinearBackoff returns the 1s..60s schedule over five tries
func DefaultLogLinearBackoff() *LogLinearBackoff {
	return &LogLinearBackoff{
		MinDelay:   1 * time.Second,
		MaxDelay:   60 * time.Second,
		MaxTries:   5,
		Resolution: time.Second,
	}
}

// NextDelay returns exp(ln(min) + (ln(max)-ln(min)) * (attempt-1)/(MaxTries-2)),
// rounded to Resolution and clamped to [MinDelay, MaxDelay].
func (lb *LogLinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 || lb.MinDelay <= 0 {
		return 0
	}

	minDelay, maxDelay := lb.MinDelay, lb.MaxDelay
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	if lb.MaxTries <= 2 || maxDelay == minDelay {
		return minDelay
	}

	lnMin := math.Log(float64(minDelay))
	lnMax := math.Log(float64(maxDelay))
	step := float64(attempt-1) / float64(lb.MaxTries-2)
	delay := time.Duration(math.Exp(lnMin + (lnMax-lnMin)*step))

	resolution := lb.Resolution
	if resolution <= 0 {
		resolution = time.Second
	}
	delay = delay.Round(resolution)

	if delay < minDelay {
		delay = minDelay
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// Reset is a no-op; the schedule is a pure function of the attempt number
func (lb *LogLinearBackoff) Reset() {}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Reset resets the backoff (no-op for constant backoff)
func (cb *ConstantBackoff) Reset() {}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
