package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetry(max int) RetryConfig {
	return RetryConfig{
		MaxRetries:   max,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsAfterTransientError(t *testing.T) {
	// Given: a function that fails twice then succeeds
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	}

	// When: retrying
	err := Retry(context.Background(), fastRetry(3), fn)

	// Then: succeeds after 3 attempts
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	attempts := 0
	fn := func() error {
		attempts++
		return errors.New("persistent error")
	}

	err := Retry(context.Background(), fastRetry(2), fn)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 3, attempts) // Initial + 2 retries
}

func TestRetryWithResult_StopsOnNonRetryableError(t *testing.T) {
	// Given: a config that only retries retryable AmanErrors
	cfg := fastRetry(5)
	cfg.ShouldRetry = IsRetryable

	attempts := 0
	fn := func() (int, error) {
		attempts++
		return 0, ProviderFailed("exa", "status 401", nil)
	}

	// When: retrying
	_, err := RetryWithResult(context.Background(), cfg, fn)

	// Then: the first error is returned unwrapped without retries
	assert.Equal(t, 1, attempts)
	assert.Equal(t, ErrCodeProviderFailed, GetCode(err))
	assert.NotContains(t, err.Error(), "retries")
}

func TestRetryWithResult_RetriesRetryableError(t *testing.T) {
	cfg := fastRetry(3)
	cfg.ShouldRetry = IsRetryable

	attempts := 0
	fn := func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", New(ErrCodeRateLimited, "429", nil)
		}
		return "ok", nil
	}

	got, err := RetryWithResult(context.Background(), cfg, fn)

	assert.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithResult_ReturnsZeroOnFailure(t *testing.T) {
	fn := func() (string, error) {
		return "partial", errors.New("error")
	}

	result, err := RetryWithResult(context.Background(), fastRetry(1), fn)

	assert.Error(t, err)
	assert.Equal(t, "", result)
}

func TestRetry_RespectsContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cfg := RetryConfig{
		MaxRetries:   10,
		InitialDelay: 30 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	err := Retry(ctx, cfg, func() error { return errors.New("error") })

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRetry_ImmediateSuccessNoDelay(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2.0}

	start := time.Now()
	err := Retry(context.Background(), cfg, func() error { return nil })

	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.MaxDelay)
	assert.NotNil(t, cfg.ShouldRetry)
}
