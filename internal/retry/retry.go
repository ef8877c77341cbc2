// Package retry wraps idempotent upstream calls with bounded exponential
// backoff. Validation failures and other terminal errors should be wrapped
// with Permanent by the caller so they surface immediately.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	maxRetries      = 3
	initialInterval = time.Second
	multiplier      = 2.0
)

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn up to maxRetries+1 times, logging each retried failure.
func Do(ctx context.Context, log zerolog.Logger, op string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	policy.Multiplier = multiplier

	return backoff.RetryNotify(
		fn,
		backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx),
		func(err error, wait time.Duration) {
			log.Warn().
				Str("op", op).
				Dur("retry_in", wait).
				Err(err).
				Msg("retrying after failure")
		},
	)
}
