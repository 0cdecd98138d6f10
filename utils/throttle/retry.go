// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package throttle provides the retry and pacing primitives used to talk to
// rate limited remote services.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// RetryPolicy configures Retry.
type RetryPolicy struct {
	// MaxAttempts is the number of attempts allowed after the first one.
	MaxAttempts int

	// Delay is the constant wait between attempts.
	Delay time.Duration

	// IsRetryable classifies errors. A nil classifier retries nothing.
	IsRetryable func(error) bool

	// OnRetry is invoked before waiting for the next attempt (1-based).
	OnRetry func(attempt int, err error)
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err is the result of running out of retries.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError

	return errors.As(err, &exhausted)
}

// Retry calls op until it succeeds, it fails with an error the policy does not
// consider retryable, or MaxAttempts additional attempts have been made.
// Attempts are sequential and separated by a fixed delay.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
		calls   int
	)

	maxAttempts := policy.MaxAttempts
	if maxAttempts < 0 {
		maxAttempts = 0
	}

	isRetryable := func(err error) bool {
		return policy.IsRetryable != nil && policy.IsRetryable(err)
	}

	err := retry.Do(
		func() error {
			calls++

			v, err := op(ctx)
			if err != nil {
				lastErr = err

				return err
			}

			result = v

			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxAttempts+1)), //nolint:gosec // maxAttempts is clamped above
		retry.Delay(policy.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			attempt := int(n) + 1 //nolint:gosec // bounded by maxAttempts
			if policy.OnRetry != nil && attempt <= maxAttempts {
				policy.OnRetry(attempt, err)
			}
		}),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return result, nil
	}

	var zero T

	if ctxErr := ctx.Err(); ctxErr != nil {
		if lastErr != nil && !isRetryable(lastErr) {
			return zero, errors.Join(lastErr, ctxErr)
		}

		return zero, ctxErr
	}

	if lastErr == nil {
		return zero, err
	}

	if isRetryable(lastErr) {
		return zero, &ExhaustedError{Attempts: calls, Err: lastErr}
	}

	return zero, lastErr
}
