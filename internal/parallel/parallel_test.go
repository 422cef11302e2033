package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	got, err := Map(context.Background(), items, 3, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 10, 40, 20, 30}, got)
}

func TestMap_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	_, err := Map(context.Background(), items, 4, func(_ context.Context, _ int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestMap_FirstErrorCancels(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	_, err := Map(context.Background(), make([]int, 50), 1, func(_ context.Context, _ int) (int, error) {
		if calls.Add(1) == 3 {
			return 0, boom
		}
		return 0, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Less(t, calls.Load(), int32(50))
}

func TestMap_ZeroLimitAndEmpty(t *testing.T) {
	got, err := Map(context.Background(), []string{"a", "b"}, 0, func(_ context.Context, s string) (string, error) {
		return s + s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "bb"}, got)

	none, err := Map(context.Background(), []string(nil), 4, func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMap_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Map(ctx, []int{1, 2, 3}, 2, func(_ context.Context, n int) (int, error) { return n, nil })
	assert.ErrorIs(t, err, context.Canceled)
}
