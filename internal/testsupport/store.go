package testsupport

import (
	"testing"

	"dcatwiz/internal/blobstore"
	"dcatwiz/internal/config"
	"dcatwiz/internal/logging"
)

// MustOpenStore opens a blobstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *blobstore.Store {
	t.Helper()

	store, err := blobstore.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("blobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
