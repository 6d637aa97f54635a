package testsupport

import (
	"context"
	"testing"

	"callscribe/internal/config"
	"callscribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewCall enqueues a call for tests using the provided store.
func NewCall(t testing.TB, store *queue.Store, sourcePath string) *queue.Call {
	t.Helper()

	call, err := store.NewCall(context.Background(), sourcePath)
	if err != nil {
		t.Fatalf("store.NewCall: %v", err)
	}
	return call
}
