package resource

import (
	"fmt"
	"strings"
)

// DuplicateNameError is returned when a binding for an already occupied
// (namespace, name, tier) triple is registered without the replace flag.
type DuplicateNameError struct {
	Namespace string
	Name      string
	Tier      string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("resource %q already registered in namespace %q under tier %q",
		e.Name, e.Namespace, e.Tier)
}

// NotFoundError is returned when a dotted path cannot be resolved to a
// registered binding. Path always carries the full dotted path attempted.
type NotFoundError struct {
	Path string
	// Tiers lists the preference order that was searched, if any.
	Tiers []string
}

func (e *NotFoundError) Error() string {
	if len(e.Tiers) > 0 {
		return fmt.Sprintf("resource %q not registered in any of the tiers [%s]",
			e.Path, strings.Join(e.Tiers, ", "))
	}
	return fmt.Sprintf("resource %q not registered", e.Path)
}

// FieldError describes one offending field of a failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationError is returned when input or output fails schema checks.
type ValidationError struct {
	Path   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("resource %q validation failed: %s", e.Path, strings.Join(parts, "; "))
}

// InvocationError wraps a failure of the Resource's own execution.
type InvocationError struct {
	Path string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("resource %q execution failed: %v", e.Path, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// CancelledError is returned for invocations aborted by their context.
// A cancelled invocation never writes to the cache.
type CancelledError struct {
	Path string
	Err  error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("resource %q invocation cancelled: %v", e.Path, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// CacheBackendError reports a cache store failure. It is non-fatal: the
// caching layer logs it and falls through to direct execution, so it never
// surfaces as an invocation failure.
type CacheBackendError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheBackendError) Error() string {
	return fmt.Sprintf("cache %s for key %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *CacheBackendError) Unwrap() error { return e.Err }
