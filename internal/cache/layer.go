package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cogneo-edge-router/pkg/logging"
)

// Layer is the response cache as the request pipeline sees it: a
// best-effort accelerator, never a correctness dependency. A store outage
// degrades lookups to misses and drops writes; neither surfaces an error
// to the request.
type Layer struct {
	store Store
	ttl   time.Duration
}

// NewLayer builds the cache layer. A nil store or non-positive TTL yields
// a disabled layer on which every lookup misses and every store is a no-op.
func NewLayer(store Store, ttl time.Duration) *Layer {
	return &Layer{store: store, ttl: ttl}
}

// Enabled reports whether the layer can actually serve hits.
func (l *Layer) Enabled() bool {
	return l != nil && l.store != nil && l.ttl > 0
}

// Lookup probes the store for key. Store errors are logged and reported as
// a miss.
func (l *Layer) Lookup(ctx context.Context, key Key) ([]byte, bool) {
	if !l.Enabled() {
		return nil, false
	}

	value, ok, err := l.store.Get(ctx, key.String())
	if err != nil {
		logging.L(ctx).Warn("cache lookup failed, treating as miss",
			zap.String("cache_key", key.String()),
			zap.Error(err),
		)
		return nil, false
	}
	return value, ok
}

// Store writes a completed response under key with the configured TTL.
// Write failures are logged and swallowed; the response has already been
// produced. Concurrent stores of the same key are last-write-wins.
func (l *Layer) Store(ctx context.Context, key Key, value []byte) {
	if !l.Enabled() || len(value) == 0 {
		return
	}

	if err := l.store.Set(ctx, key.String(), value, l.ttl); err != nil {
		logging.L(ctx).Warn("cache store failed, dropping write",
			zap.String("cache_key", key.String()),
			zap.Error(err),
		)
	}
}

// TTL returns the layer's time-to-live for stored entries.
func (l *Layer) TTL() time.Duration {
	return l.ttl
}
