package cache

import (
	"context"
	"fmt"
	"time"

	"cogneo-edge-router/internal/route"
)

// Key is the deterministic fingerprint of one cacheable request. Hash is a
// sha256 of the normalized forwarded body, so generation parameters (model,
// llm_source, message content, result size) are part of the key and two
// requests differing in backend or tenant can never collide.
type Key struct {
	Tenant   string
	Endpoint string
	Backend  route.Backend
	Hash     string
}

// String renders the final key used in the store:
// edge:<TENANT>:<ENDPOINT>:<BACKEND>:<HASH_HEX>
func (k Key) String() string {
	return fmt.Sprintf("edge:%s:%s:%s:%s", k.Tenant, k.Endpoint, k.Backend, k.Hash)
}

// Store is the key/value interface the cache layer runs on. Implemented by
// the in-memory store (dev, tests) and the Redis/Valkey store (prod).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
