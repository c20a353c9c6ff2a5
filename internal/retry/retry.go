// Package retry runs an operation a bounded number of times with a fixed
// delay between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is the attempt budget for one call site. Attempts below one are
// treated as a single attempt.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	retries := p.Attempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(retries)),
		ctx,
	)
}

// Do calls op until it succeeds, the attempts are used up or ctx is done.
// It returns the last error op produced, or the context error on cancellation.
// Wrapping an error with Permanent stops retrying immediately.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	return backoff.Retry(func() error { return op(ctx) }, p.backOff(ctx))
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	return backoff.RetryWithData(func() (T, error) { return op(ctx) }, p.backOff(ctx))
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
