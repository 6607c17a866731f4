package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry_StopsOnSuccess(t *testing.T) {
	var seen []int
	err := Retry(context.Background(), 3, 0, func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 2 {
			return errors.New("not yet")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRetry_ReturnsLastErrorAfterAllAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(_ context.Context, attempt int) error {
		calls++
		return errors.New("attempt failed")
	})

	assert.EqualError(t, err, "attempt failed")
	assert.Equal(t, 3, calls)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), 0, 0, func(context.Context, int) error {
		calls++
		return errors.New("fail")
	})
	assert.Equal(t, 1, calls)
}

func TestRetry_CancelledContextStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	start := time.Now()
	err := Retry(ctx, 5, time.Hour, func(context.Context, int) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestRetry_PermanentErrorStopsAtOnce(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Retry(context.Background(), 3, time.Hour, func(context.Context, int) error {
		calls++
		return Permanent(ErrNoToken)
	})

	assert.Equal(t, ErrNoToken, err, "returned unwrapped")
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Minute)
	assert.NoError(t, Permanent(nil))
}
