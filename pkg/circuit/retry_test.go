package circuit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, 100*time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return errBoom
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryReturnsLastErrorWhenExhausted(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 3, 100*time.Millisecond, func() error {
		attempts++
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, 3, 100*time.Millisecond, func() error {
		attempts++
		return errBoom
	})

	assert.Error(t, err)
	assert.Equal(t, 0, attempts)
}

func TestRetrySingleAttemptOnNoFailureBudget(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 1, 0, func() error {
		attempts++
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, attempts)
}
