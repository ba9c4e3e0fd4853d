// Package ratelimit paces outgoing API calls on the client side.
//
// It does not read or track the remote service's own quota headers; it only
// keeps the local request rate under a configured ceiling.
//
// Token Bucket:
//   - Starts full and refills continuously at capacity per period
//   - Lets the whole budget go out as a burst, then one call per interval
//
// Sliding Window:
//   - Keeps the times of the last N grants in a ring
//   - Never more than N calls in any window; the default
//
// All limiters implement Limiter:
//   - Allow() bool
//   - Wait(ctx) error, which returns early when ctx is cancelled
//   - Reset()
//
// Usage:
//
//	limiter, err := ratelimit.New(ratelimit.AlgorithmSlidingWindow, 60)
//	if err != nil {
//	    return err
//	}
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// send request
package ratelimit
