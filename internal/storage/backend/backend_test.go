package backend

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	tests := []struct {
		driver string
		file   string
	}{
		{driver: "", file: "default.db"},
		{driver: DriverSQLite, file: "nested/dir/duality.db"},
		{driver: DriverBolt, file: "nested/duality.bolt"},
		{driver: "MEMORY"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = filepath.Join(t.TempDir(), tt.file)
			}
			store, err := Open(tt.driver, path)
			if err != nil {
				t.Fatalf("Open(%q) error = %v", tt.driver, err)
			}
			defer store.Close()

			ctx := context.Background()
			if err := store.SetInt(ctx, "u1", "hope", 2); err != nil {
				t.Fatalf("SetInt() error = %v", err)
			}
			if v, ok, err := store.GetInt(ctx, "u1", "hope"); err != nil || !ok || v != 2 {
				t.Fatalf("GetInt() = (%d, %v, %v)", v, ok, err)
			}
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("postgres", "x"); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestOpenRequiresPathForPersistentDrivers(t *testing.T) {
	if _, err := Open(DriverSQLite, ""); err == nil {
		t.Fatal("expected missing path error")
	}
}
