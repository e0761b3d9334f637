package retrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrier_Do(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		r := New()
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("success after retries", func(t *testing.T) {
		r := New(WithMaxRetries(3), WithInitialInterval(1*time.Millisecond))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("fail")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("exhausts retries", func(t *testing.T) {
		r := New(WithMaxRetries(2), WithInitialInterval(1*time.Millisecond))
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return errors.New("always fails")
		})
		assert.Error(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		r := New(WithMaxRetries(5), WithInitialInterval(50*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		err := r.Do(ctx, func(ctx context.Context) error {
			attempts++
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDoWithData(t *testing.T) {
	r := New(WithMaxRetries(2), WithInitialInterval(1*time.Millisecond))
	attempts := 0
	got, err := DoWithData(r, context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("fail")
		}
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, got)
}
