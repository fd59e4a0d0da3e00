// Package resource defines the unit of invocable business behavior and the
// pipeline that runs it: request validation, execution, response validation.
//
// A Resource is stateless across calls. Per-call state (the calling user,
// cancellation) travels in the context. A single instance is reused by
// concurrent callers, so implementations must not mutate shared state
// without their own synchronization.
package resource

import (
	"context"
	"errors"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"
)

// Resource is a unit of invocable business behavior.
type Resource interface {
	// Execute runs the business logic for an already validated input.
	Execute(ctx context.Context, input any) (any, error)
}

// RequestValidator is implemented by Resources that validate their raw
// input before execution. The returned value replaces the raw input for
// the Execute call.
type RequestValidator interface {
	ValidateRequest(input any) (any, error)
}

// ResponseValidator is implemented by Resources that validate their
// output after execution.
type ResponseValidator interface {
	ValidateResponse(output any) (any, error)
}

// Func adapts a plain function to the Resource interface.
type Func func(ctx context.Context, input any) (any, error)

func (f Func) Execute(ctx context.Context, input any) (any, error) {
	return f(ctx, input)
}

// Invoke runs the full invocation pipeline for a Resource resolved at the
// given dotted path: request validation (if the Resource implements
// RequestValidator), execution, then response validation (if the Resource
// implements ResponseValidator).
//
// A context cancelled before or during execution yields a *CancelledError.
// Validation failures pass through as *ValidationError with the path
// attached. Any other execution failure is wrapped in an *InvocationError
// carrying the path.
func Invoke(ctx context.Context, path string, r Resource, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Path: path, Err: err}
	}

	if rv, ok := r.(RequestValidator); ok {
		validated, err := rv.ValidateRequest(input)
		if err != nil {
			return nil, attachPath(path, err)
		}
		input = validated
	}

	output, err := r.Execute(ctx, input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, &CancelledError{Path: path, Err: err}
		}
		slogcontext.FromCtx(ctx).Debug("resource execution failed",
			slog.String("realm", "resource"), slog.String("path", path), slog.Any("error", err))
		return nil, attachPath(path, err)
	}

	if rv, ok := r.(ResponseValidator); ok {
		validated, err := rv.ValidateResponse(output)
		if err != nil {
			return nil, attachPath(path, err)
		}
		output = validated
	}

	return output, nil
}

// attachPath decorates typed errors with the resolved dotted path without
// disturbing errors that already carry one.
func attachPath(path string, err error) error {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		if vErr.Path == "" {
			vErr.Path = path
		}
		return err
	}
	var cErr *CancelledError
	if errors.As(err, &cErr) {
		if cErr.Path == "" {
			cErr.Path = path
		}
		return err
	}
	var iErr *InvocationError
	if errors.As(err, &iErr) {
		if iErr.Path == "" {
			iErr.Path = path
		}
		return err
	}
	return &InvocationError{Path: path, Err: err}
}
