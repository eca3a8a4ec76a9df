package testutil

import (
	"path/filepath"
	"testing"

	"zipdex/internal/catalog"
)

// NewTestStore creates a file-backed catalog store in a test temp
// directory with the schema applied. The store is closed when the test
// completes.
func NewTestStore(t *testing.T) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})
	return store
}
