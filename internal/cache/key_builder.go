package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"cogneo-edge-router/internal/route"
)

// BuildKey builds the cache key for one request from the logical endpoint
// name, the resolved routing decision and the forwarded body. The body is
// normalized first, so two bodies differing only in key order or
// insignificant whitespace hash identically. Private override fields were
// already stripped by envelope parsing and can never reach the hash.
func BuildKey(tenant, endpoint string, decision route.Decision, body []byte) (Key, error) {
	normalized, err := normalizeJSON(body)
	if err != nil {
		return Key{}, err
	}

	sum := sha256.Sum256(normalized)

	return Key{
		Tenant:   tenant,
		Endpoint: endpoint,
		Backend:  decision.Backend,
		Hash:     hex.EncodeToString(sum[:]),
	}, nil
}

// normalizeJSON re-encodes a JSON document in canonical form: object keys
// sorted at every depth, no insignificant whitespace.
func normalizeJSON(body []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	// encoding/json marshals map keys in sorted order at every level.
	return json.Marshal(v)
}
