package registry

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/resourcekit/resourcekit/resource"
)

// Resolve picks the binding for a logical (namespace, name) across an
// ordered tier preference list, highest priority first. The first tier
// with a registered binding strictly wins; partial implementations are
// never merged across tiers. When no preferred tier matches, the binding
// under TierDefault is used. If that is also absent, a
// *resource.NotFoundError carrying the full dotted path is returned.
func (r *Registry) Resolve(namespace, name string, tiers []string) (Binding, error) {
	searched := make([]string, 0, len(tiers)+1)
	for _, tier := range tiers {
		if tier == "" {
			continue
		}
		searched = append(searched, tier)
		if b, ok := r.Lookup(namespace, name, tier); ok {
			return b, nil
		}
		slog.Debug("tier has no binding, falling through",
			slog.String("realm", "registry"), slog.String("namespace", namespace),
			slog.String("name", name), slog.String("tier", tier))
	}

	if !slices.Contains(searched, TierDefault) {
		searched = append(searched, TierDefault)
		if b, ok := r.Lookup(namespace, name, TierDefault); ok {
			return b, nil
		}
	}

	path := name
	if ns := strings.Join(splitNamespace(namespace), "."); ns != "" {
		path = ns + "." + name
	}
	return Binding{}, &resource.NotFoundError{Path: path, Tiers: searched}
}
