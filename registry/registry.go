// Package registry holds the authoritative table of (namespace, name, tier)
// to Resource-factory bindings and resolves logical names across override
// tiers.
//
// Registration is expected to happen single-threaded at process startup;
// lookups afterwards are many-reader and guarded by an RWMutex, not
// per-call locking.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/resourcekit/resourcekit/resource"
)

// TierDefault is the fallback tier searched when no tier in the preference
// list carries a binding.
const TierDefault = "default"

// Factory produces a ready-to-use Resource instance. Resolution calls it
// at most once per path (the shortcut tree caches the instance).
// Registering with an empty name invokes it one extra time so the name can
// be inferred from the concrete type; factories with registration-time
// side effects should be registered under an explicit name.
type Factory func() resource.Resource

// Binding is the immutable registration record for one resource.
type Binding struct {
	Namespace    []string
	Name         string
	Tier         string
	Factory      Factory
	RegisteredAt time.Time
	// CustomName records whether the name was supplied explicitly rather
	// than inferred from the implementing type.
	CustomName bool
}

// Path returns the full dotted path of the binding, namespace included.
func (b Binding) Path() string {
	if len(b.Namespace) == 0 {
		return b.Name
	}
	return strings.Join(b.Namespace, ".") + "." + b.Name
}

type bindingKey struct {
	namespace string
	name      string
	tier      string
}

// Registry is the bindings table. The zero value is not usable; use New.
type Registry struct {
	mu       sync.RWMutex
	bindings map[bindingKey]Binding
	now      func() time.Time
}

func New() *Registry {
	return &Registry{
		bindings: make(map[bindingKey]Binding),
		now:      time.Now,
	}
}

// RegisterOption customizes a single registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	tier       string
	replace    bool
	customName bool
}

// WithTier registers the binding under a named override tier instead of
// TierDefault.
func WithTier(tier string) RegisterOption {
	return func(o *registerOptions) {
		o.tier = tier
	}
}

// WithReplace allows the registration to supersede an existing binding for
// the same (namespace, name, tier). Already-resolved handles are not
// affected.
func WithReplace() RegisterOption {
	return func(o *registerOptions) {
		o.replace = true
	}
}

func withCustomName() RegisterOption {
	return func(o *registerOptions) {
		o.customName = true
	}
}

// Register adds a binding for the dotted namespace and name. An empty name
// is inferred from the factory's concrete type via InferName. Registering
// a duplicate (namespace, name, tier) without WithReplace fails with a
// *resource.DuplicateNameError.
func (r *Registry) Register(namespace, name string, factory Factory, opts ...RegisterOption) error {
	if factory == nil {
		return fmt.Errorf("register resource %q in namespace %q: factory is nil", name, namespace)
	}

	options := registerOptions{tier: TierDefault}
	for _, opt := range opts {
		opt(&options)
	}

	if name == "" {
		name = NameOf(factory())
	} else {
		options.customName = true
	}

	segments := splitNamespace(namespace)

	r.mu.Lock()
	defer r.mu.Unlock()

	key := bindingKey{namespace: strings.Join(segments, "."), name: name, tier: options.tier}
	if _, exists := r.bindings[key]; exists && !options.replace {
		return &resource.DuplicateNameError{Namespace: key.namespace, Name: name, Tier: options.tier}
	}

	r.bindings[key] = Binding{
		Namespace:    segments,
		Name:         name,
		Tier:         options.tier,
		Factory:      factory,
		RegisteredAt: r.now(),
		CustomName:   options.customName,
	}
	return nil
}

// MustRegister is Register for static init-list registration. It panics on
// error so a name collision fails process startup instead of being
// silently skipped.
func (r *Registry) MustRegister(namespace, name string, factory Factory, opts ...RegisterOption) {
	if err := r.Register(namespace, name, factory, opts...); err != nil {
		panic(err)
	}
}

// RegisterFunc registers a plain function as a resource. Function
// resources have no type to infer a name from, so the name is mandatory.
func (r *Registry) RegisterFunc(namespace, name string, fn resource.Func, opts ...RegisterOption) error {
	if name == "" {
		return fmt.Errorf("register function resource in namespace %q: name is empty", namespace)
	}
	factory := func() resource.Resource { return fn }
	return r.Register(namespace, name, factory, append(opts, withCustomName())...)
}

// Unregister removes a binding, primarily for test isolation. Bindings
// already resolved through a shortcut tree keep serving their instance.
func (r *Registry) Unregister(namespace, name, tier string) error {
	if tier == "" {
		tier = TierDefault
	}
	segments := splitNamespace(namespace)

	r.mu.Lock()
	defer r.mu.Unlock()

	key := bindingKey{namespace: strings.Join(segments, "."), name: name, tier: tier}
	if _, exists := r.bindings[key]; !exists {
		return &resource.NotFoundError{Path: key.namespace + "." + name, Tiers: []string{tier}}
	}
	delete(r.bindings, key)
	return nil
}

// Lookup returns the binding for an exact (namespace, name, tier) triple.
func (r *Registry) Lookup(namespace, name, tier string) (Binding, bool) {
	if tier == "" {
		tier = TierDefault
	}
	segments := splitNamespace(namespace)

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[bindingKey{namespace: strings.Join(segments, "."), name: name, tier: tier}]
	return b, ok
}

// Entry describes one registered name and the tiers it is available under.
type Entry struct {
	Namespace string
	Name      string
	Tiers     []string
}

// List returns the names registered under a namespace, each with its
// available tiers, sorted by name.
func (r *Registry) List(namespace string) []Entry {
	ns := strings.Join(splitNamespace(namespace), ".")

	r.mu.RLock()
	defer r.mu.RUnlock()

	tiersByName := make(map[string][]string)
	for key := range r.bindings {
		if key.namespace != ns {
			continue
		}
		tiersByName[key.name] = append(tiersByName[key.name], key.tier)
	}
	return collectEntries(ns, tiersByName)
}

// Glob returns all bindings whose full dotted path matches the given glob
// pattern, for example "monitor.*.list_*".
func (r *Registry) Glob(pattern string) ([]Entry, error) {
	matcher, err := glob.Compile(pattern, '.')
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	type nsName struct{ namespace, name string }
	tiersByPath := make(map[nsName][]string)
	for key := range r.bindings {
		path := key.name
		if key.namespace != "" {
			path = key.namespace + "." + key.name
		}
		if !matcher.Match(path) {
			continue
		}
		tiersByPath[nsName{key.namespace, key.name}] = append(tiersByPath[nsName{key.namespace, key.name}], key.tier)
	}

	entries := make([]Entry, 0, len(tiersByPath))
	for k, tiers := range tiersByPath {
		sort.Strings(tiers)
		entries = append(entries, Entry{Namespace: k.namespace, Name: k.name, Tiers: tiers})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Namespace != entries[j].Namespace {
			return entries[i].Namespace < entries[j].Namespace
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func collectEntries(namespace string, tiersByName map[string][]string) []Entry {
	entries := make([]Entry, 0, len(tiersByName))
	for name, tiers := range tiersByName {
		sort.Strings(tiers)
		entries = append(entries, Entry{Namespace: namespace, Name: name, Tiers: tiers})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func splitNamespace(namespace string) []string {
	if namespace == "" {
		return nil
	}
	parts := strings.Split(namespace, ".")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
