package resilience

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// ErrInvalidInput marks an attempt whose input failed validation; the loop
// asks again. Any other error ends the loop immediately.
var ErrInvalidInput = errors.New("invalid input")

// Reprompt calls attempt until it succeeds, returns an error that does not
// wrap ErrInvalidInput, or ctx is done. maxAttempts of zero means no bound.
// There is no delay between attempts: the wait is the operator typing.
func Reprompt(ctx context.Context, maxAttempts uint64, attempt func() error) error {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if maxAttempts > 0 {
		// WithMaxRetries counts retries, not attempts
		b = backoff.WithMaxRetries(b, maxAttempts-1)
	}
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(func() error {
		err := attempt()
		if err == nil || errors.Is(err, ErrInvalidInput) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
}
