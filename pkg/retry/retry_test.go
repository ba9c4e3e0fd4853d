package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "tweetpruner/pkg/errors"
	"tweetpruner/pkg/logger"
)

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		AbortIf:     errs.IsNotFound,
		Context:     context.Background(),
	}
}

func TestLogLinearBackoffSchedule(t *testing.T) {
	backoff := DefaultLogLinearBackoff()

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 1 * time.Second},
		{2, 4 * time.Second},
		{3, 15 * time.Second},
		{4, 60 * time.Second},
	}

	for _, test := range tests {
		delay := backoff.NextDelay(test.attempt)
		if delay != test.expected {
			t.Errorf("attempt %d: expected %v, got %v", test.attempt, test.expected, delay)
		}
	}
}

func TestLogLinearBackoffMonotonic(t *testing.T) {
	for _, maxTries := range []int{3, 5, 8, 12} {
		backoff := &LogLinearBackoff{
			MinDelay: 2 * time.Second,
			MaxDelay: 90 * time.Second,
			MaxTries: maxTries,
		}

		prev := time.Duration(0)
		for attempt := 1; attempt < maxTries; attempt++ {
			delay := backoff.NextDelay(attempt)
			if delay < prev {
				t.Errorf("maxTries=%d attempt %d: delay %v decreased from %v", maxTries, attempt, delay, prev)
			}
			if delay < backoff.MinDelay || delay > backoff.MaxDelay {
				t.Errorf("maxTries=%d attempt %d: delay %v outside [%v, %v]",
					maxTries, attempt, delay, backoff.MinDelay, backoff.MaxDelay)
			}
			if delay%time.Second != 0 {
				t.Errorf("maxTries=%d attempt %d: delay %v not rounded to seconds", maxTries, attempt, delay)
			}
			prev = delay
		}

		if first := backoff.NextDelay(1); first != backoff.MinDelay {
			t.Errorf("maxTries=%d: first delay %v, want %v", maxTries, first, backoff.MinDelay)
		}
		if last := backoff.NextDelay(maxTries - 1); last != backoff.MaxDelay {
			t.Errorf("maxTries=%d: last delay %v, want %v", maxTries, last, backoff.MaxDelay)
		}
	}
}

func TestLogLinearBackoffDegenerate(t *testing.T) {
	small := &LogLinearBackoff{MinDelay: 3 * time.Second, MaxDelay: 60 * time.Second, MaxTries: 2}
	if got := small.NextDelay(1); got != 3*time.Second {
		t.Errorf("two-try budget should sleep MinDelay, got %v", got)
	}

	flat := &LogLinearBackoff{MinDelay: 5 * time.Second, MaxDelay: 5 * time.Second, MaxTries: 6}
	for attempt := 1; attempt < 6; attempt++ {
		if got := flat.NextDelay(attempt); got != 5*time.Second {
			t.Errorf("attempt %d: expected 5s, got %v", attempt, got)
		}
	}

	if got := small.NextDelay(0); got != 0 {
		t.Errorf("attempt 0 should not sleep, got %v", got)
	}
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	outcome, err := Do(op, fastConfig(5))
	if err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if outcome != Succeeded {
		t.Errorf("Expected Succeeded, got %v", outcome)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	persistent := errs.New(errs.ErrorTypeServerError, 503, "over capacity")
	op := func() error {
		attempts++
		return persistent
	}

	outcome, err := Do(op, fastConfig(3))
	if err == nil {
		t.Fatal("Expected error when max attempts exceeded")
	}
	if !errors.Is(err, persistent) {
		t.Errorf("Expected final error to wrap the operation error, got %v", err)
	}
	if outcome != Failed {
		t.Errorf("Expected Failed, got %v", outcome)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryNotFoundAbortsEarly(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts == 1 {
			return errors.New("connection reset")
		}
		return errs.New(errs.ErrorTypeNotFound, 404, "No status found with that ID.")
	}

	var retries []int
	cfg := fastConfig(5)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retries = append(retries, attempt)
	}

	outcome, err := Do(op, cfg)
	if err != nil {
		t.Fatalf("Expected no error on abort, got %v", err)
	}
	if outcome != Aborted {
		t.Errorf("Expected Aborted, got %v", outcome)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if len(retries) != 1 || retries[0] != 1 {
		t.Errorf("Expected a single sleep after attempt 1, got %v", retries)
	}
}

func TestRetryNotFoundOnFinalAttemptPropagates(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("timeout")
		}
		return errs.New(errs.ErrorTypeNotFound, 404, "gone")
	}

	outcome, err := Do(op, fastConfig(3))
	if outcome != Failed {
		t.Errorf("Expected Failed, got %v", outcome)
	}
	if !errs.IsNotFound(err) {
		t.Errorf("Expected the final not-found error to propagate, got %v", err)
	}
}

func TestRetrySingleAttemptIsUnguarded(t *testing.T) {
	notFound := errs.New(errs.ErrorTypeNotFound, 404, "gone")
	outcome, err := Do(func() error { return notFound }, fastConfig(1))
	if outcome != Failed || err != notFound {
		t.Errorf("Expected (Failed, notFound), got (%v, %v)", outcome, err)
	}
}

func TestRetryEveryFailureKindUntilSuccess(t *testing.T) {
	kinds := map[string]error{
		"auth":    errs.New(errs.ErrorTypeAuth, 401, "Could not authenticate you."),
		"parsing": errs.New(errs.ErrorTypeParsing, 200, "failed to parse JSON"),
		"server":  errs.New(errs.ErrorTypeServerError, 503, "Over capacity"),
		"plain":   errors.New("unexpected EOF"),
	}

	for name, failure := range kinds {
		t.Run(name, func(t *testing.T) {
			attempts := 0
			op := func() error {
				attempts++
				if attempts <= 2 {
					return failure
				}
				return nil
			}

			outcome, err := Do(op, fastConfig(5))
			if err != nil {
				t.Fatalf("Expected success, got: %v", err)
			}
			if outcome != Succeeded {
				t.Errorf("Expected Succeeded, got %v", outcome)
			}
			if attempts != 3 {
				t.Errorf("Expected 3 attempts (2 failures + success), got %d", attempts)
			}
		})
	}
}

func TestRetryRejectedErrorFailsImmediately(t *testing.T) {
	attempts := 0
	permanent := errors.New("permanent")
	cfg := fastConfig(5)
	cfg.RetryIf = func(err error) bool { return err != permanent }

	outcome, err := Do(func() error {
		attempts++
		return permanent
	}, cfg)
	if outcome != Failed || err != permanent {
		t.Errorf("Expected (Failed, permanent), got (%v, %v)", outcome, err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	op := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	cfg := fastConfig(5)
	cfg.Backoff = &ConstantBackoff{Delay: time.Second}
	cfg.Context = ctx

	outcome, err := Do(op, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if outcome != Failed {
		t.Errorf("Expected Failed, got %v", outcome)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts before cancellation, got %d", attempts)
	}
}

func TestRetryLogsEachRetry(t *testing.T) {
	tl := logger.NewTestLogger()
	cfg := fastConfig(4)
	cfg.Logger = tl
	cfg.Label = "fetch posts page"

	_, _ = Do(func() error { return errs.New(errs.ErrorTypeRateLimit, 429, "Rate limit exceeded") }, cfg)

	warns := tl.GetMessagesByLevel("WARN")
	if len(warns) != 3 {
		t.Fatalf("Expected 3 retry warnings, got %d", len(warns))
	}
	if warns[0].Fields["operation"] != "fetch posts page" {
		t.Errorf("Expected label on retry log, got %+v", warns[0].Fields)
	}
	if warns[0].Fields["kind"] != string(errs.ErrorTypeRateLimit) || warns[2].Fields["attempt"] != 3 {
		t.Errorf("Expected kind and attempt on retry log, got %+v", warns[2].Fields)
	}
	if !tl.HasError() {
		t.Error("Expected exhaustion at error level")
	}
	if !tl.HasMessage("max retry attempts exceeded") {
		t.Error("Expected exhaustion to be logged")
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("eof"), true},
		{"server", errs.New(errs.ErrorTypeServerError, 500, ""), true},
		{"rate limit", errs.New(errs.ErrorTypeRateLimit, 429, ""), true},
		{"not found", errs.New(errs.ErrorTypeNotFound, 404, ""), true},
		{"auth", errs.New(errs.ErrorTypeAuth, 401, ""), true},
		{"parsing", errs.New(errs.ErrorTypeParsing, 0, ""), true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		if attempts < 2 {
			return "partial", errors.New("temporary error")
		}
		return "success", nil
	}

	result, outcome, err := DoWithResult(op, fastConfig(3))
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if outcome != Succeeded || result != "success" {
		t.Errorf("Expected (success, Succeeded), got (%q, %v)", result, outcome)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}

	result, outcome, _ = DoWithResult(func() (string, error) {
		return "stale", errs.New(errs.ErrorTypeNotFound, 404, "")
	}, fastConfig(3))
	if outcome != Aborted || result != "" {
		t.Errorf("Expected zero result on abort, got (%q, %v)", result, outcome)
	}
}

func TestRetrierVariants(t *testing.T) {
	base := NewRetrier(fastConfig(5))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	derived := base.WithContext(ctx).WithLabel("unlike")

	if base.Config().Label != "" || base.Config().Context != context.Background() {
		t.Error("deriving mutated the parent retrier")
	}
	if derived.Config().Label != "unlike" || derived.Config().Context != ctx {
		t.Errorf("unexpected derived config: %+v", derived.Config())
	}

	attempts := 0
	_, err := derived.Do(func() error {
		attempts++
		return errors.New("nope")
	})
	if err == nil || attempts != 5 {
		t.Errorf("Expected 5 failing attempts, got %d (err=%v)", attempts, err)
	}
}
