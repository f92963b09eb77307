package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retryable is satisfied by errors that know whether a retry is worthwhile
// (e.g. llmclient.Error, searchclient.Error).
type Retryable interface {
	error
	Retryable() bool
}

// RetryWithBackoff runs op, retrying with exponential backoff and jitter
// while the returned error is Retryable. Gives up after maxElapsed.
func RetryWithBackoff(ctx context.Context, maxElapsed time.Duration, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = maxElapsed

	wrapped := backoff.WithContext(policy, ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if r, ok := err.(Retryable); ok && !r.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}, wrapped)
}
