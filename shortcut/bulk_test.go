package shortcut

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourcekit/resourcekit/registry"
	"github.com/resourcekit/resourcekit/resource"
)

// failOn returns a handle whose resource fails for one specific input.
func failingHandle(t *testing.T, failInput string) *Handle {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.RegisterFunc("bulk", "worker",
		func(_ context.Context, input any) (any, error) {
			if input == failInput {
				return nil, fmt.Errorf("input %v rejected", input)
			}
			return input, nil
		}))
	tree := New(reg)
	h, err := tree.Get(context.Background(), "bulk.worker")
	require.NoError(t, err)
	return h
}

func TestBulkInvoke_PartialFailure(t *testing.T) {
	h := failingHandle(t, "c")

	inputs := []any{"a", "b", "c", "d", "e"}
	results, err := h.BulkInvoke(context.Background(), inputs,
		WithMaxConcurrency(2), WithPartialFailure())
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, input := range inputs {
		if i == 2 {
			require.Error(t, results[i].Err)
			var iErr *resource.InvocationError
			assert.ErrorAs(t, results[i].Err, &iErr)
			continue
		}
		require.NoError(t, results[i].Err)
		assert.Equal(t, input, results[i].Value)
	}
}

func TestBulkInvoke_FailFastDiscardsSuccesses(t *testing.T) {
	h := failingHandle(t, "a")

	results, err := h.BulkInvoke(context.Background(), []any{"a", "b", "c", "d", "e"},
		WithMaxConcurrency(2))
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestBulkInvoke_AllFailedSurfacesError(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterFunc("bulk", "broken",
		func(context.Context, any) (any, error) {
			return nil, errors.New("always broken")
		}))
	tree := New(reg)
	h, err := tree.Get(context.Background(), "bulk.broken")
	require.NoError(t, err)

	results, err := h.BulkInvoke(context.Background(), []any{"a", "b", "c"}, WithPartialFailure())
	require.Error(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Error(t, r.Err)
	}
}

func TestDispatch_OrderPreservedAcrossCompletionOrder(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterFunc("bulk", "sleepy",
		func(_ context.Context, input any) (any, error) {
			// later slots complete first
			d := input.(time.Duration)
			time.Sleep(d)
			return d, nil
		}))
	tree := New(reg)
	h, err := tree.Get(context.Background(), "bulk.sleepy")
	require.NoError(t, err)

	inputs := []any{
		30 * time.Millisecond,
		20 * time.Millisecond,
		10 * time.Millisecond,
		time.Millisecond,
	}
	results, err := h.BulkInvoke(context.Background(), inputs, WithMaxConcurrency(4))
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, input := range inputs {
		assert.Equal(t, input, results[i].Value)
	}
}

func TestDispatch_PoolWidthIsBounded(t *testing.T) {
	var inflight, peak atomic.Int64
	reg := registry.New()
	require.NoError(t, reg.RegisterFunc("bulk", "gauge",
		func(_ context.Context, input any) (any, error) {
			n := inflight.Add(1)
			defer inflight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return input, nil
		}))
	tree := New(reg)
	h, err := tree.Get(context.Background(), "bulk.gauge")
	require.NoError(t, err)

	inputs := make([]any, 10)
	for i := range inputs {
		inputs[i] = i
	}
	_, err = h.BulkInvoke(context.Background(), inputs, WithMaxConcurrency(2), WithPartialFailure())
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestDispatch_MixedHandles(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterFunc("bulk", "upper",
		func(_ context.Context, input any) (any, error) { return "UPPER:" + input.(string), nil }))
	require.NoError(t, reg.RegisterFunc("bulk", "lower",
		func(_ context.Context, input any) (any, error) { return "lower:" + input.(string), nil }))

	tree := New(reg)
	upper, err := tree.Get(context.Background(), "bulk.upper")
	require.NoError(t, err)
	lower, err := tree.Get(context.Background(), "bulk.lower")
	require.NoError(t, err)

	results, err := Dispatch(context.Background(), []Invocation{
		{Handle: upper, Input: "a"},
		{Handle: lower, Input: "b"},
		{Handle: upper, Input: "c"},
	}, WithMaxConcurrency(2))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "UPPER:a", results[0].Value)
	assert.Equal(t, "lower:b", results[1].Value)
	assert.Equal(t, "UPPER:c", results[2].Value)
}

func TestDispatch_CancelledContext(t *testing.T) {
	h := failingHandle(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Dispatch(ctx, []Invocation{{Handle: h, Input: "a"}}, WithPartialFailure())
	require.Error(t, err)
	require.Len(t, results, 1)
	var cancelled *resource.CancelledError
	assert.ErrorAs(t, results[0].Err, &cancelled)
}
