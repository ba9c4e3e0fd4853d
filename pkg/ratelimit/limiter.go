package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	// AlgorithmSlidingWindow grants at most N calls in any one-minute span
	AlgorithmSlidingWindow = "sliding_window"
	// AlgorithmTokenBucket allows a burst of the full budget, then trickles
	AlgorithmTokenBucket = "token_bucket"

	minWait = time.Millisecond
)

// Limiter paces calls to a remote API
type Limiter interface {
	// Allow takes a slot if one is free right now
	Allow() bool
	// Wait blocks until a slot is taken or ctx ends
	Wait(ctx context.Context) error
	// Reset forgets all past calls
	Reset()
}

// New builds a limiter allowing requestsPerMinute calls per minute.
// A non-positive rate yields a limiter that never blocks.
func New(algorithm string, requestsPerMinute int) (Limiter, error) {
	if requestsPerMinute <= 0 {
		return Unlimited{}, nil
	}
	switch algorithm {
	case "", AlgorithmSlidingWindow:
		return NewSlidingWindow(requestsPerMinute, time.Minute), nil
	case AlgorithmTokenBucket:
		return NewTokenBucket(requestsPerMinute, time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown rate limit algorithm: %s", algorithm)
	}
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}

// waitFor loops on try until it grants a slot, sleeping for the delay it
// reports in between
func waitFor(ctx context.Context, try func(time.Time) (bool, time.Duration)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, delay := try(time.Now())
		if ok {
			return nil
		}
		if delay < minWait {
			delay = minWait
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// TokenBucket holds up to capacity tokens, refilled evenly so that a full
// bucket's worth arrives every refill period
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	perSec   float64
	last     time.Time
}

// NewTokenBucket creates a full bucket of capacity tokens
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	return &TokenBucket{
		capacity: float64(capacity),
		tokens:   float64(capacity),
		perSec:   float64(capacity) / refillPeriod.Seconds(),
		last:     time.Now(),
	}
}

func (tb *TokenBucket) take(now time.Time) (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = math.Min(tb.capacity, tb.tokens+now.Sub(tb.last).Seconds()*tb.perSec)
	tb.last = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true, 0
	}
	return false, time.Duration((1 - tb.tokens) / tb.perSec * float64(time.Second))
}

// Allow takes a token if one is available
func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.take(time.Now())
	return ok
}

// Wait sleeps exactly until the next token is due
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return waitFor(ctx, tb.take)
}

// Reset refills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.last = time.Now()
}

// SlidingWindow remembers the time of the last N grants in a ring and
// refuses a call until the oldest of them is a full window old
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	stamps []time.Time
	next   int // slot to overwrite; the oldest grant once the ring is full
	used   int
}

// NewSlidingWindow allows maxRequests calls in any span of window
func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &SlidingWindow{
		window: window,
		stamps: make([]time.Time, maxRequests),
	}
}

func (sw *SlidingWindow) take(now time.Time) (bool, time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.used == len(sw.stamps) {
		if age := now.Sub(sw.stamps[sw.next]); age < sw.window {
			return false, sw.window - age
		}
	} else {
		sw.used++
	}

	sw.stamps[sw.next] = now
	sw.next = (sw.next + 1) % len(sw.stamps)
	return true, 0
}

// Allow records a call if the window has room
func (sw *SlidingWindow) Allow() bool {
	ok, _ := sw.take(time.Now())
	return ok
}

// Wait blocks until the oldest grant leaves the window
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	return waitFor(ctx, sw.take)
}

// Reset forgets every recorded call
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.next, sw.used = 0, 0
}
