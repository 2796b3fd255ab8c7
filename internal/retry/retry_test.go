package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingPolicy(maxRetries int) (Policy, *[]time.Duration) {
	var slept []time.Duration
	p := Policy{
		MaxRetries: maxRetries,
		BaseDelay:  100 * time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}
	return p, &slept
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	p, slept := recordingPolicy(3)
	calls := 0
	v, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestDo_ExponentialBackoff(t *testing.T) {
	p, slept := recordingPolicy(3)
	calls := 0
	v, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		if calls < 4 {
			return 0, errors.New("flaky")
		}
		return calls, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, *slept)
}

func TestDo_ExhaustedReturnsLastError(t *testing.T) {
	p, _ := recordingPolicy(3)
	boom := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	p, slept := recordingPolicy(3)
	bad := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(bad)
	})
	assert.ErrorIs(t, err, bad)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestDo_AttemptTimeout(t *testing.T) {
	p, _ := recordingPolicy(1)
	p.AttemptTimeout = 10 * time.Millisecond
	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestDo_ParentCancelled(t *testing.T) {
	p, _ := recordingPolicy(3)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPolicyDelay_JitterBounded(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxJitter: 200 * time.Millisecond}
	for i := 0; i < 50; i++ {
		d := p.Delay(2)
		assert.GreaterOrEqual(t, d, 4*time.Second)
		assert.Less(t, d, 4*time.Second+200*time.Millisecond)
	}
}

func TestDo_OnRetryObserved(t *testing.T) {
	p, _ := recordingPolicy(2)
	var attempts []int
	p.OnRetry = func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) }
	_, _ = Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, errors.New("x")
	})
	assert.Equal(t, []int{1, 2}, attempts)
}
