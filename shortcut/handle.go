package shortcut

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resourcekit/resourcekit/metrics"
	"github.com/resourcekit/resourcekit/resource"
)

// Handle is the caller-facing reference to one resolved Resource. Handles
// are borrowed from the tree, never owned: the tree keeps the instance
// alive for the process lifetime and hands the same Handle to every
// caller of the path.
type Handle struct {
	path      string
	tier      string
	res       resource.Resource
	submitter Submitter
}

// Path returns the full dotted path the handle was resolved from.
func (h *Handle) Path() string { return h.path }

// Tier returns the override tier the binding was selected from.
func (h *Handle) Tier() string { return h.tier }

// Invoke runs the resource's validation and execution pipeline for one
// input.
func (h *Handle) Invoke(ctx context.Context, input any) (any, error) {
	start := time.Now()
	output, err := resource.Invoke(ctx, h.path, h.res, input)
	metrics.RequestDuration.WithLabelValues(h.path).Observe(time.Since(start).Seconds())
	metrics.RequestsTotal.WithLabelValues(h.path, statusOf(err)).Inc()
	return output, err
}

// BulkInvoke fans one handle out over many inputs through the bulk
// dispatcher. Output order matches input order.
func (h *Handle) BulkInvoke(ctx context.Context, inputs []any, opts ...BulkOption) ([]Result, error) {
	invocations := make([]Invocation, len(inputs))
	for i, input := range inputs {
		invocations[i] = Invocation{Handle: h, Input: input}
	}
	return Dispatch(ctx, invocations, opts...)
}

// Defer hands the invocation off to the configured external task
// executor. The framework does not manage queue or retry semantics; the
// returned TaskHandle is the executor's receipt. The caller scope is
// captured now so the deferred execution caches under the submitting
// user.
func (h *Handle) Defer(ctx context.Context, input any) (TaskHandle, error) {
	if h.submitter == nil {
		return nil, fmt.Errorf("resource %q cannot be deferred: no task submitter configured", h.path)
	}
	scope := resource.ScopeFrom(ctx)
	task := func(taskCtx context.Context) (any, error) {
		return h.Invoke(resource.WithScope(taskCtx, scope), input)
	}
	return h.submitter.Submit(ctx, h.path, task)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.As(err, new(*resource.CancelledError)):
		return "cancelled"
	default:
		return "error"
	}
}
