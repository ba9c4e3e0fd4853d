package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "tweetpruner/pkg/errors"
	"tweetpruner/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Outcome reports how a retried operation ended
type Outcome int

const (
	// Succeeded means some attempt returned without error
	Succeeded Outcome = iota
	// Aborted means an early attempt hit an abort condition (the target no
	// longer exists); the caller should treat the work as done
	Aborted
	// Failed means the error returned alongside should be handled
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the total attempt budget, including the final one
	MaxAttempts int
	// Backoff strategy to use between attempts
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// AbortIf marks errors that end the loop quietly with Outcome Aborted.
	// It is consulted for every attempt but the last.
	AbortIf func(error) bool
	// OnRetry is called before each sleep
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context for cancellation
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
	// Label names the operation in log records
	Label string
}

// DefaultConfig returns five attempts over the 1s..60s log-linear schedule
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 5,
		Backoff:     DefaultLogLinearBackoff(),
		RetryIf:     DefaultRetryIf,
		AbortIf:     errs.IsNotFound,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// NewConfig builds a Config whose log-linear schedule spans maxTries attempts
func NewConfig(minDelay, maxDelay time.Duration, maxTries int, log logger.Logger) *Config {
	return &Config{
		MaxAttempts: maxTries,
		Backoff: &LogLinearBackoff{
			MinDelay:   minDelay,
			MaxDelay:   maxDelay,
			MaxTries:   maxTries,
			Resolution: time.Second,
		},
		RetryIf: DefaultRetryIf,
		AbortIf: errs.IsNotFound,
		Context: context.Background(),
		Logger:  log,
	}
}

// DefaultRetryIf retries every failure except an ended context. Not-found
// is left to AbortIf.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do executes op up to MaxAttempts times.
//
// Attempts 1..MaxAttempts-1 are guarded: an AbortIf error returns
// (Aborted, nil), an error RetryIf rejects returns (Failed, err), anything
// else sleeps Backoff.NextDelay(attempt) and tries again. The final
// attempt is unguarded and its error is returned as is, wrapped with the
// attempt count.
func Do(op Operation, cfg *Config) (Outcome, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.Label != "" {
		log = log.WithField("operation", cfg.Label)
	}

	for attempt := 1; attempt < maxAttempts; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return Succeeded, nil
		}

		if cfg.AbortIf != nil && cfg.AbortIf(err) {
			log.DebugWithFields("operation aborted", map[string]interface{}{
				"attempt": attempt,
				"reason":  err.Error(),
			})
			return Aborted, nil
		}

		if !retryIf(err) {
			log.DebugWithFields("error is not retryable", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return Failed, err
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"kind":         string(errs.TypeOf(err)),
			"error":        err.Error(),
			"delay":        delay.String(),
			"max_attempts": maxAttempts,
		})

		if werr := Wait(ctx, delay); werr != nil {
			log.WarnWithFields("retry cancelled", map[string]interface{}{
				"attempt": attempt,
				"reason":  werr.Error(),
			})
			return Failed, fmt.Errorf("retry cancelled: %w", werr)
		}
	}

	err := op()
	if err == nil {
		if maxAttempts > 1 {
			log.DebugWithFields("operation succeeded on final attempt", map[string]interface{}{
				"attempt": maxAttempts,
			})
		}
		return Succeeded, nil
	}

	if maxAttempts > 1 {
		log.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
			"attempts":   maxAttempts,
			"last_error": err.Error(),
		})
		return Failed, fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, err)
	}
	return Failed, err
}

// DoWithResult executes an operation that returns a result with retry logic.
// The result is the zero value unless the outcome is Succeeded.
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, Outcome, error) {
	var result T

	outcome, err := Do(func() error {
		r, opErr := op()
		if opErr != nil {
			return opErr
		}
		result = r
		return nil
	}, cfg)

	if outcome != Succeeded {
		var zero T
		return zero, outcome, err
	}
	return result, outcome, err
}

// Retrier provides a reusable retry mechanism
type Retrier struct {
	config *Config
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(cfg *Config) *Retrier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Retrier{config: cfg}
}

// Config returns a copy of the retrier's configuration
func (r *Retrier) Config() Config {
	return *r.config
}

// Do executes an operation with retry logic
func (r *Retrier) Do(op Operation) (Outcome, error) {
	return Do(op, r.config)
}

// WithContext returns a new retrier with updated context
func (r *Retrier) WithContext(ctx context.Context) *Retrier {
	newConfig := *r.config
	newConfig.Context = ctx
	return &Retrier{config: &newConfig}
}

// WithLabel returns a new retrier that tags its log records with label
func (r *Retrier) WithLabel(label string) *Retrier {
	newConfig := *r.config
	newConfig.Label = label
	return &Retrier{config: &newConfig}
}
