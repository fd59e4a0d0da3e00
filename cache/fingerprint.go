package cache

import (
	"encoding/json"
	"fmt"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/opencontainers/go-digest"
)

// Fingerprint computes the deterministic identity of one cacheable
// invocation: resource identity, canonicalized input, and (for
// scope-sensitive bindings) the caller scope. Scope-insensitive bindings
// pass an empty scope so unrelated callers share one entry.
//
// The input is canonicalized per RFC 8785 (JCS): lexicographically sorted
// object keys and shortest-round-trip number formatting, so two inputs
// that differ only in key order or numeric spelling produce the same
// fingerprint.
func Fingerprint(resourceID string, input any, scope string) (string, error) {
	payload := struct {
		Resource string `json:"resource"`
		Input    any    `json:"input"`
		Scope    string `json:"scope,omitempty"`
	}{
		Resource: resourceID,
		Input:    input,
		Scope:    scope,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("could not encode invocation for fingerprinting: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("could not canonicalize invocation: %w", err)
	}
	return digest.SHA256.FromBytes(canonical).Encoded(), nil
}
