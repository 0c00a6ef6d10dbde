package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.waits = append(s.waits, d)
}

func TestDo_PersistentFailure(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("max=%d", n), func(t *testing.T) {
			rec := &sleepRecorder{}
			p := New(n, 30*time.Second, WithSleep(rec.sleep))

			calls := 0
			_, err := Do(context.Background(), p, func(ctx context.Context, attempt int) (string, error) {
				calls++
				assert.Equal(t, calls, attempt)
				return "", fmt.Errorf("copy failed #%d", attempt)
			})

			require.Error(t, err)
			assert.Equal(t, n, calls)

			var re *Error
			require.True(t, errors.As(err, &re))
			assert.Equal(t, n, re.Attempts)
			errs := re.Errors()
			require.Len(t, errs, n+1)
			assert.ErrorIs(t, errs[n], ErrMaxAttempts)
			for i := 0; i < n; i++ {
				assert.EqualError(t, errs[i], fmt.Sprintf("copy failed #%d", i+1))
			}
			assert.EqualError(t, re.Last(), fmt.Sprintf("copy failed #%d", n))

			// one wait between each pair of attempts, none after the last
			assert.Len(t, rec.waits, n-1)
			for _, w := range rec.waits {
				assert.Equal(t, 30*time.Second, w)
			}
		})
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	for k := 0; k < 4; k++ {
		t.Run(fmt.Sprintf("fail=%d", k), func(t *testing.T) {
			rec := &sleepRecorder{}
			p := New(5, time.Second, WithSleep(rec.sleep))

			calls := 0
			got, err := Do(context.Background(), p, func(ctx context.Context, attempt int) (int, error) {
				calls++
				if attempt <= k {
					return 0, errors.New("transient")
				}
				return attempt, nil
			})

			require.NoError(t, err)
			assert.Equal(t, k+1, got)
			assert.Equal(t, k+1, calls)
			assert.Len(t, rec.waits, k)
		})
	}
}

func TestRun_Notify(t *testing.T) {
	var notified []int
	p := New(3, 0,
		WithSleep(func(time.Duration) {}),
		WithNotify(func(attempt int, err error) { notified = append(notified, attempt) }),
	)

	err := p.Run(context.Background(), func(ctx context.Context, attempt int) error {
		return errors.New("nope")
	})

	require.Error(t, err)
	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, ErrMaxAttempts)
	assert.Equal(t, []int{1, 2, 3}, notified)
}

func TestNew_Bounds(t *testing.T) {
	p := New(0, -time.Second)
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Equal(t, time.Duration(0), p.Delay)
}

func TestIsExhausted(t *testing.T) {
	assert.False(t, IsExhausted(errors.New("plain")))
	assert.False(t, IsExhausted(nil))
	wrapped := fmt.Errorf("transfer: %w", &Error{Attempts: 1, errs: []error{errors.New("x"), ErrMaxAttempts}})
	assert.True(t, IsExhausted(wrapped))
}
