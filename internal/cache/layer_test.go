package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"cogneo-edge-router/internal/route"
)

// failingStore simulates a cache store outage.
type failingStore struct {
	gets int
	sets int
}

func (s *failingStore) Get(context.Context, string) ([]byte, bool, error) {
	s.gets++
	return nil, false, errors.New("connection refused")
}

func (s *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	s.sets++
	return errors.New("connection refused")
}

func testKey(t *testing.T) Key {
	t.Helper()
	k, err := BuildKey("default", "search/vector", route.Decision{Backend: route.BackendPostgres}, []byte(`{"query":"x"}`))
	if err != nil {
		t.Fatalf("BuildKey: %v", err)
	}
	return k
}

func TestLayerRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	t.Cleanup(func() { store.Close() })

	l := NewLayer(store, time.Minute)
	ctx := context.Background()
	key := testKey(t)

	if _, hit := l.Lookup(ctx, key); hit {
		t.Fatalf("expected miss on empty layer")
	}

	l.Store(ctx, key, []byte(`{"results":[1]}`))

	got, hit := l.Lookup(ctx, key)
	if !hit {
		t.Fatalf("expected hit after store")
	}
	if string(got) != `{"results":[1]}` {
		t.Fatalf("unexpected cached value: %s", got)
	}
}

func TestLayerDegradesOnStoreOutage(t *testing.T) {
	store := &failingStore{}
	l := NewLayer(store, time.Minute)
	ctx := context.Background()
	key := testKey(t)

	// A lookup against a broken store is a miss, never an error.
	if _, hit := l.Lookup(ctx, key); hit {
		t.Fatalf("expected miss when store errors")
	}
	if store.gets != 1 {
		t.Fatalf("expected one store access, got %d", store.gets)
	}

	// A failed write is swallowed.
	l.Store(ctx, key, []byte("value"))
	if store.sets != 1 {
		t.Fatalf("expected one write attempt, got %d", store.sets)
	}
}

func TestLayerDisabled(t *testing.T) {
	ctx := context.Background()
	key := testKey(t)

	for _, l := range []*Layer{
		nil,
		NewLayer(nil, time.Minute),
		NewLayer(NewMemoryStore(time.Minute), 0),
	} {
		if l.Enabled() {
			t.Fatalf("layer should be disabled: %#v", l)
		}
		if _, hit := l.Lookup(ctx, key); hit {
			t.Fatalf("disabled layer must always miss")
		}
		l.Store(ctx, key, []byte("value")) // must be a no-op, not a panic
	}
}
