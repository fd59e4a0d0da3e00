// Package shortcut materializes the registry's namespace hierarchy as a
// lazily built tree of singleton Resource handles and provides the
// concurrent bulk dispatcher.
//
// A node's Resource is instantiated on first access and is permanent for
// the tree's lifetime: no eviction, no hot swap. Re-registration after
// first resolution does not affect already resolved handles. This is a
// deliberate rigidity favoring predictable singleton semantics over
// dynamism.
package shortcut

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/singleflight"

	"github.com/resourcekit/resourcekit/registry"
	"github.com/resourcekit/resourcekit/resource"
)

// Middleware decorates a freshly instantiated Resource at resolution time.
// The caching layer is attached here so every handle resolved through the
// tree is transparently wrapped.
type Middleware func(path string, r resource.Resource) resource.Resource

// Option configures a Tree.
type Option func(*Tree)

// WithTiers sets the override tier preference list, highest priority
// first. Set once at tree construction; resolution always consults the
// same list.
func WithTiers(tiers ...string) Option {
	return func(t *Tree) {
		t.tiers = tiers
	}
}

// WithSubmitter wires the external task executor used by Handle.Defer.
func WithSubmitter(s Submitter) Option {
	return func(t *Tree) {
		t.submitter = s
	}
}

// WithMiddleware appends resolution-time middleware, applied in order.
func WithMiddleware(mw ...Middleware) Option {
	return func(t *Tree) {
		t.middleware = append(t.middleware, mw...)
	}
}

// Tree is the lazily materialized namespace resolver.
type Tree struct {
	registry   *registry.Registry
	tiers      []string
	submitter  Submitter
	middleware []Middleware

	group singleflight.Group
	root  *node
}

type node struct {
	mu       sync.RWMutex
	children map[string]*node
	handle   *Handle
}

func New(reg *registry.Registry, opts ...Option) *Tree {
	t := &Tree{
		registry: reg,
		root:     &node{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get resolves a dotted path to its singleton Handle, materializing
// intermediate nodes on demand. Concurrent first accessors are serialized
// so exactly one Resource instantiation occurs; every caller receives the
// same instance. An unresolvable path yields a *resource.NotFoundError
// carrying the full dotted path.
func (t *Tree) Get(ctx context.Context, path string) (*Handle, error) {
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("invalid resource path %q", path)
		}
	}

	n := t.root
	for _, segment := range segments {
		n = n.child(segment)
	}

	n.mu.RLock()
	h := n.handle
	n.mu.RUnlock()
	if h != nil {
		return h, nil
	}

	v, err, _ := t.group.Do(path, func() (any, error) {
		// double-checked: a concurrent resolver may have won the flight
		// for this path before we were queued
		n.mu.RLock()
		h := n.handle
		n.mu.RUnlock()
		if h != nil {
			return h, nil
		}

		h, err := t.resolve(ctx, path, segments)
		if err != nil {
			return nil, err
		}

		n.mu.Lock()
		n.handle = h
		n.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

func (t *Tree) resolve(ctx context.Context, path string, segments []string) (*Handle, error) {
	namespace := strings.Join(segments[:len(segments)-1], ".")
	name := segments[len(segments)-1]

	binding, err := t.registry.Resolve(namespace, name, t.tiers)
	if err != nil {
		return nil, err
	}

	res := binding.Factory()
	for _, mw := range t.middleware {
		res = mw(path, res)
	}

	slogcontext.FromCtx(ctx).Debug("resolved resource",
		slog.String("realm", "shortcut"), slog.String("path", path), slog.String("tier", binding.Tier))

	return &Handle{
		path:      path,
		tier:      binding.Tier,
		res:       res,
		submitter: t.submitter,
	}, nil
}

func (n *node) child(segment string) *node {
	n.mu.RLock()
	c := n.children[segment]
	n.mu.RUnlock()
	if c != nil {
		return c
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if c := n.children[segment]; c != nil {
		return c
	}
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c = &node{}
	n.children[segment] = c
	return c
}
