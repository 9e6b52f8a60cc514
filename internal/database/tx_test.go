package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serializationFailure() error {
	return &pq.Error{Code: "40001", Message: "could not serialize access due to concurrent update"}
}

func TestRetrySucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	var retried []int

	err := Retry(context.Background(), TxOptions{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
		OnRetry:     func(attempt int, _ error) { retried = append(retried, attempt) },
	}, func(context.Context) error {
		calls++
		if calls < 3 {
			return serializationFailure()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryStopsAfterMaxAttempts(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), TxOptions{MaxAttempts: 3, Backoff: time.Millisecond}, func(context.Context) error {
		calls++
		return &pq.Error{Code: "40P01", Message: "deadlock detected"}
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, ErrorClassDeadlock, ClassifyError(err))
}

func TestRetryDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), TxOptions{MaxAttempts: 3, Backoff: time.Millisecond}, func(context.Context) error {
		calls++
		return ErrInsufficientStock
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
}

func TestRetryHonorsCustomClassification(t *testing.T) {
	errFlaky := errors.New("flaky")
	calls := 0

	err := Retry(context.Background(), TxOptions{
		MaxAttempts: 2,
		Retryable:   func(err error) bool { return errors.Is(err, errFlaky) },
	}, func(context.Context) error {
		calls++
		if calls == 1 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Retry(ctx, TxOptions{MaxAttempts: 5, Backoff: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return serializationFailure()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", serializationFailure(), ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassUniqueViolation},
		{"check violation", &pq.Error{Code: "23514"}, ErrorClassPermanent},
		{"wrapped", errors.Join(errors.New("commit"), serializationFailure()), ErrorClassSerialization},
		{"plain", errors.New("boom"), ErrorClassPermanent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}
