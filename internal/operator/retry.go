// Package operator implements the LM Operator Layer (spec §4.2): typed
// Signatures rendered into prompts, invoked against an llm.Client, and
// parsed back into declared output fields, wrapped by Modules that add
// sanitization, validation, and structured logging.
package operator

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/soochol/skillsmith/internal/apierr"
)

// RetryPolicy configures operator-level retry on LMError{Transient}. This
// is the teacher's internal/services/retry.go backoff formula
// (calculateBackoff) generalized from workflow-run retries down to a
// single operator call (spec §4.2: "retry up to 3 with exponential
// backoff"), per spec §4.2's fixed bound of 3.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
}

// DefaultRetryPolicy is the spec-mandated bound: up to 3 retries.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:    3,
	InitialDelay:  500 * time.Millisecond,
	BackoffFactor: 2.0,
	MaxDelay:      10 * time.Second,
}

func calculateBackoff(policy RetryPolicy, attempt int) time.Duration {
	delay := float64(policy.InitialDelay) * math.Pow(policy.BackoffFactor, float64(attempt))
	if time.Duration(delay) > policy.MaxDelay {
		return policy.MaxDelay
	}
	return time.Duration(delay)
}

// callWithRetry invokes fn, retrying while it returns an apierr.LMTransient
// error, up to policy.MaxRetries times. Any other error (including
// apierr.LMPermanent) propagates immediately, matching spec §4.2's
// Transient/Permanent split.
func callWithRetry[T any](ctx context.Context, policy RetryPolicy, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !apierr.Is(err, apierr.LMTransient) || attempt >= policy.MaxRetries {
			return zero, err
		}

		delay := calculateBackoff(policy, attempt)
		slog.Warn("operator: retrying after transient LM error", "operator", label, "attempt", attempt+1, "delay", delay, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
