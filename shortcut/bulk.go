package shortcut

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/resourcekit/resourcekit/metrics"
	"github.com/resourcekit/resourcekit/resource"
)

// Invocation pairs one handle with one input for bulk dispatch.
type Invocation struct {
	Handle *Handle
	Input  any
}

// Result is one output slot of a bulk dispatch. Exactly one of Value and
// Err is meaningful.
type Result struct {
	Value any
	Err   error
}

// BulkOption configures one bulk dispatch call.
type BulkOption func(*bulkOptions)

type bulkOptions struct {
	// maxConcurrency bounds the worker pool. If 0, it defaults to the
	// number of CPUs.
	maxConcurrency int
	partialFailure bool
}

// WithMaxConcurrency bounds the dispatch worker pool.
func WithMaxConcurrency(n int) BulkOption {
	return func(o *bulkOptions) {
		o.maxConcurrency = n
	}
}

// WithPartialFailure switches the dispatcher from fail-fast to
// partial-failure collection: individual failures are captured per slot
// and siblings run to completion.
func WithPartialFailure() BulkOption {
	return func(o *bulkOptions) {
		o.partialFailure = true
	}
}

// Dispatch executes the invocations across a bounded worker pool. The
// returned slice always has the same length and order as the input,
// regardless of completion order; invocations never wait on each other's
// results, only on pool width.
//
// In the default fail-fast mode the first failure cancels in-flight and
// unstarted invocations and Dispatch returns that single error with no
// results: the contract is all-or-nothing. In partial-failure mode every
// slot carries its own outcome; if every slot failed, the first error is
// additionally surfaced as the call error.
func Dispatch(ctx context.Context, invocations []Invocation, opts ...BulkOption) ([]Result, error) {
	options := bulkOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.maxConcurrency <= 0 {
		options.maxConcurrency = runtime.NumCPU()
	}

	if options.partialFailure {
		return dispatchPartial(ctx, invocations, options.maxConcurrency)
	}
	return dispatchFailFast(ctx, invocations, options.maxConcurrency)
}

func dispatchFailFast(ctx context.Context, invocations []Invocation, maxConcurrency int) ([]Result, error) {
	results := make([]Result, len(invocations))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrency)
	for i, inv := range invocations {
		i, inv := i, inv
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			metrics.BulkInflight.Inc()
			defer metrics.BulkInflight.Dec()

			value, err := inv.Handle.Invoke(ctx, inv.Input)
			if err != nil {
				return err
			}
			results[i] = Result{Value: value}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		// all-or-nothing: completed successes are discarded
		return nil, err
	}
	return results, nil
}

func dispatchPartial(ctx context.Context, invocations []Invocation, maxConcurrency int) ([]Result, error) {
	results := make([]Result, len(invocations))

	sem := semaphore.NewWeighted(int64(maxConcurrency))
	var wg sync.WaitGroup
	for i, inv := range invocations {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = Result{Err: &resource.CancelledError{Path: inv.Handle.path, Err: err}}
			continue
		}
		i, inv := i, inv
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			metrics.BulkInflight.Inc()
			defer metrics.BulkInflight.Dec()

			value, err := inv.Handle.Invoke(ctx, inv.Input)
			results[i] = Result{Value: value, Err: err}
		}()
	}
	wg.Wait()

	// when every slot failed, surface the first failure as the call error
	// as well so callers that ignore slots still see it
	var firstErr error
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.Err
			}
		}
	}
	if len(results) > 0 && failed == len(results) {
		return results, firstErr
	}
	return results, nil
}
