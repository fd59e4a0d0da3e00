package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/singleflight"

	"github.com/resourcekit/resourcekit/metrics"
	"github.com/resourcekit/resourcekit/resource"
)

// gzip members always start with these two bytes; raw JSON never does, so
// stored values self-describe whether they are compressed.
var gzipMagic = []byte{0x1f, 0x8b}

// Option configures a cache Wrapper.
type Option func(*Wrapper)

// WithTTL sets how long stored results live. Defaults to one minute.
func WithTTL(ttl time.Duration) Option {
	return func(w *Wrapper) {
		w.ttl = ttl
	}
}

// WithScoped makes the cache scope-sensitive: the caller scope from the
// context becomes part of the fingerprint, so distinct callers get
// distinct entries.
func WithScoped() Option {
	return func(w *Wrapper) {
		w.scoped = true
	}
}

// WithCompression gzips stored values larger than the compression
// threshold.
func WithCompression() Option {
	return func(w *Wrapper) {
		w.compress = true
	}
}

// WithCompressionThreshold overrides the minimum serialized size, in
// bytes, above which values are compressed.
func WithCompressionThreshold(n int) Option {
	return func(w *Wrapper) {
		w.compressMin = n
	}
}

// WithWritePredicate replaces the default always-cache predicate. The
// predicate sees the successful result and decides whether it is stored.
func WithWritePredicate(predicate func(output any) bool) Option {
	return func(w *Wrapper) {
		w.writePredicate = predicate
	}
}

// WithKeyPrefix namespaces all store keys produced by this wrapper.
func WithKeyPrefix(prefix string) Option {
	return func(w *Wrapper) {
		w.prefix = prefix
	}
}

// Wrap decorates a Resource with transparent caching. The wrapper exposes
// the same Execute contract; on each call it fingerprints the input,
// returns a stored result on a hit, and otherwise executes the wrapped
// Resource and conditionally stores the outcome.
//
// Failures of the wrapped Resource propagate unchanged and are never
// cached. Store failures are logged and degrade to direct execution; they
// never surface to the caller. Two wrappers with independent TTL and scope
// policies may be layered: a combined miss executes the underlying
// Resource exactly once because the inner layer serves the outer layer's
// miss.
func Wrap(id string, r resource.Resource, store Store, opts ...Option) *Wrapper {
	w := &Wrapper{
		id:             id,
		inner:          r,
		store:          store,
		ttl:            time.Minute,
		compressMin:    64,
		prefix:         "resource_cache",
		writePredicate: func(any) bool { return true },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wrapper is the caching middleware around one Resource. See Wrap.
type Wrapper struct {
	id             string
	inner          resource.Resource
	store          Store
	ttl            time.Duration
	scoped         bool
	compress       bool
	compressMin    int
	prefix         string
	writePredicate func(any) bool

	group singleflight.Group
}

// ValidateRequest delegates to the wrapped Resource so the validation
// pipeline sees through the cache layer.
func (w *Wrapper) ValidateRequest(input any) (any, error) {
	if rv, ok := w.inner.(resource.RequestValidator); ok {
		return rv.ValidateRequest(input)
	}
	return input, nil
}

// ValidateResponse delegates to the wrapped Resource.
func (w *Wrapper) ValidateResponse(output any) (any, error) {
	if rv, ok := w.inner.(resource.ResponseValidator); ok {
		return rv.ValidateResponse(output)
	}
	return output, nil
}

func (w *Wrapper) Execute(ctx context.Context, input any) (any, error) {
	if isBypassed(ctx) {
		return w.inner.Execute(ctx, input)
	}

	scope := ""
	if w.scoped {
		scope = resource.ScopeFrom(ctx)
	}
	fingerprint, err := Fingerprint(w.id, input, scope)
	if err != nil {
		// inputs that cannot be fingerprinted are simply uncacheable
		slogcontext.FromCtx(ctx).Warn("input not fingerprintable, executing without cache",
			slog.String("realm", "cache"), slog.String("resource", w.id), slog.Any("error", err))
		return w.inner.Execute(ctx, input)
	}
	key := w.prefix + ":" + fingerprint

	if isRefresh(ctx) {
		metrics.CacheEvents.WithLabelValues(w.id, "refresh").Inc()
	} else {
		if value, ok := w.read(ctx, key); ok {
			metrics.CacheEvents.WithLabelValues(w.id, "hit").Inc()
			return value, nil
		}
		metrics.CacheEvents.WithLabelValues(w.id, "miss").Inc()
	}

	// Concurrent identical misses collapse into one execution.
	value, err, _ := w.group.Do(key, func() (any, error) {
		return w.executeAndStore(ctx, key, input)
	})
	return value, err
}

// read returns a stored value, treating backend failures and undecodable
// entries as misses.
func (w *Wrapper) read(ctx context.Context, key string) (any, bool) {
	data, ok, err := w.store.Get(ctx, key)
	if err != nil {
		w.reportBackendError(ctx, &resource.CacheBackendError{Op: "get", Key: key, Err: err})
		return nil, false
	}
	if !ok {
		return nil, false
	}

	if bytes.HasPrefix(data, gzipMagic) {
		data, err = gunzip(data)
		if err != nil {
			w.reportBackendError(ctx, &resource.CacheBackendError{Op: "decompress", Key: key, Err: err})
			return nil, false
		}
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		w.reportBackendError(ctx, &resource.CacheBackendError{Op: "decode", Key: key, Err: err})
		return nil, false
	}
	return value, true
}

func (w *Wrapper) executeAndStore(ctx context.Context, key string, input any) (any, error) {
	output, err := w.inner.Execute(ctx, input)
	if err != nil {
		return nil, err
	}
	// a cancelled invocation must not write to the cache
	if ctx.Err() != nil {
		return output, nil
	}
	if !w.writePredicate(output) {
		return output, nil
	}

	data, err := json.Marshal(output)
	if err != nil {
		slogcontext.FromCtx(ctx).Warn("result not serializable, skipping cache write",
			slog.String("realm", "cache"), slog.String("resource", w.id), slog.Any("error", err))
		return output, nil
	}
	// return the exact representation a later hit will decode, so miss and
	// hit outputs are indistinguishable
	var normalized any
	if err := json.Unmarshal(data, &normalized); err == nil {
		output = normalized
	}
	if w.compress && len(data) > w.compressMin {
		if compressed, err := gzipBytes(data); err == nil {
			data = compressed
		}
	}
	if err := w.store.Set(ctx, key, data, w.ttl); err != nil {
		w.reportBackendError(ctx, &resource.CacheBackendError{Op: "set", Key: key, Err: err})
	}
	return output, nil
}

func (w *Wrapper) reportBackendError(ctx context.Context, err *resource.CacheBackendError) {
	metrics.CacheEvents.WithLabelValues(w.id, "error").Inc()
	slogcontext.FromCtx(ctx).Warn("cache backend degraded",
		slog.String("realm", "cache"), slog.String("resource", w.id), slog.Any("error", err))
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not open compressed cache entry: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
