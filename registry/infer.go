package registry

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/resourcekit/resourcekit/resource"
)

// Trailing grouping markers stripped during namespace inference. They mark
// "where resources live" inside a package hierarchy and carry no namespace
// meaning of their own.
var groupingMarkers = map[string]bool{
	"resources": true,
	"default":   true,
	"adapter":   true,
}

// NameOf derives the registered name for a Resource from its concrete type
// identifier via InferName.
func NameOf(r resource.Resource) string {
	t := reflect.TypeOf(r)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		// unnamed types (closures wrapped in Func) have no identifier
		return "resource"
	}
	return InferName(name)
}

// InferName derives a registered name from a type identifier:
//
//   - a trailing "Resource" suffix is stripped and the remainder
//     lower-snake-cased: "ListAlarmsResource" → "list_alarms"
//   - a trailing "API" suffix is stripped, the remainder lower-snake-cased
//     and "_api" appended: "NodeManAPI" → "node_man_api"
//   - otherwise the whole identifier is lower-snake-cased.
//
// The rule is total: a bare "Resource" or "API" falls back to snake-casing
// the full identifier so the result is never empty.
func InferName(identifier string) string {
	if trimmed, ok := strings.CutSuffix(identifier, "Resource"); ok && trimmed != "" {
		return toSnake(trimmed)
	}
	if trimmed, ok := strings.CutSuffix(identifier, "API"); ok && trimmed != "" {
		return toSnake(trimmed) + "_api"
	}
	return toSnake(identifier)
}

// InferNamespace derives a dotted namespace from a declaring path such as
// "monitor/strategy/resources" or "monitor.strategy.resources", stripping
// one trailing grouping marker segment.
func InferNamespace(declaringPath string) string {
	segments := strings.FieldsFunc(declaringPath, func(r rune) bool {
		return r == '/' || r == '.'
	})
	if n := len(segments); n > 0 && groupingMarkers[segments[n-1]] {
		segments = segments[:n-1]
	}
	return strings.Join(segments, ".")
}

// toSnake lower-snake-cases a CamelCase identifier, keeping acronym runs
// together: "ListAlarms" → "list_alarms", "HTTPServer" → "http_server".
func toSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) && runes[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
