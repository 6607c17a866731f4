package services

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry calls fn up to attempts times, waiting delay between failures. There
// is no backoff growth and no jitter. attempt is 1-based. The last error is
// returned when every attempt fails; a cancelled ctx stops early with ctx.Err().
// An error wrapped with Permanent ends the loop at once.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var b retry.Backoff
	if delay > 0 {
		b = retry.NewConstant(delay)
	} else {
		b = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}
	b = retry.WithMaxRetries(uint64(attempts-1), b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx, attempt); err != nil {
			var p *permanentError
			if errors.As(err, &p) {
				return p.err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Permanent marks err as not worth another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }
