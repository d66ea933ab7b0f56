package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/louisbranch/dualitydice/internal/storage"
	"github.com/louisbranch/dualitydice/internal/storage/storagetest"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return openTempStore(t)
	})
}

func TestReopenKeepsValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "duality.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.SetInt(context.Background(), "u1", "hope", 5); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	v, ok, err := reopened.GetInt(context.Background(), "u1", "hope")
	if err != nil || !ok || v != 5 {
		t.Fatalf("GetInt() = (%d, %v, %v), want (5, true, nil)", v, ok, err)
	}
}

func TestNilStoreIsNotConfigured(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.SetInt(context.Background(), "u1", "hope", 1); err == nil {
		t.Fatal("expected error from nil store")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() on nil store = %v", err)
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "duality.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
