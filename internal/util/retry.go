package util

import (
	"context"
	"time"

	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/pkg/log"
)

const (
	// DefaultMaxRetries is the number of additional attempts made after the first one fails.
	DefaultMaxRetries = 2
	// DefaultSleepBetweenRetries is the fixed pause between two attempts.
	DefaultSleepBetweenRetries = time.Second
)

// Backoff returns how long to wait before the given retry (1-based).
type Backoff func(retry int) time.Duration

// FixedBackoff waits the same duration before every retry.
func FixedBackoff(sleep time.Duration) Backoff {
	return func(int) time.Duration { return sleep }
}

// RetryPolicy bounds how often and how patiently an action is retried.
type RetryPolicy struct {
	Backoff    Backoff
	MaxRetries int
}

// DefaultRetryPolicy retries twice with a one second pause.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Backoff:    FixedBackoff(DefaultSleepBetweenRetries),
	}
}

// DoWithRetry runs the specified action. If it returns a value, return that value. If it returns an error, sleep
// according to the policy and try again, up to a maximum of policy.MaxRetries retries, so the action runs at most
// MaxRetries+1 times. Once the retries are exhausted the error of the last attempt is returned as is.
// A FatalError stops the loop immediately and its underlying error is returned.
func DoWithRetry[T any](ctx context.Context, actionDescription string, policy RetryPolicy, logger log.Logger, action func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if policy.Backoff == nil {
		policy.Backoff = FixedBackoff(DefaultSleepBetweenRetries)
	}

	for attempt := 0; ; attempt++ {
		logger.Tracef("%s (attempt %d of %d)", actionDescription, attempt+1, policy.MaxRetries+1)

		val, err := action(ctx)
		if err == nil {
			return val, nil
		}

		var fatalErr FatalError
		if errors.As(err, &fatalErr) {
			logger.Debugf("%s returned a non-retryable error: %s", actionDescription, fatalErr.Error())
			return zero, fatalErr.Underlying
		}

		if ctx.Err() != nil {
			logger.Debugf("%s returned an error: %s.", actionDescription, err.Error())
			return zero, errors.New(ctx.Err())
		}

		if attempt >= policy.MaxRetries {
			return zero, err
		}

		sleep := policy.Backoff(attempt + 1)

		logger.WithField(log.FieldKeyAttempt, attempt+1).Warnf("%s returned an error: %s. Retry %d of %d. Sleeping for %s and will try again.", actionDescription, err.Error(), attempt+1, policy.MaxRetries, sleep)

		select {
		case <-time.After(sleep): // Try again
		case <-ctx.Done():
			return zero, errors.New(ctx.Err())
		}
	}
}

// FatalError is error interface for cases that should not be retried.
type FatalError struct {
	Underlying error
}

func (err FatalError) Error() string {
	return err.Underlying.Error()
}

func (err FatalError) Unwrap() error {
	return err.Underlying
}
