// Package backend opens the configured storage.Store implementation.
package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/dualitydice/internal/storage"
	"github.com/louisbranch/dualitydice/internal/storage/bbolt"
	"github.com/louisbranch/dualitydice/internal/storage/memory"
	"github.com/louisbranch/dualitydice/internal/storage/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bbolt"
	DriverMemory = "memory"
)

// Open returns a store for driver. Persistent drivers create the parent
// directory of path when it does not exist.
func Open(driver, path string) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		return sqlite.Open(path)
	case DriverBolt:
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		return bbolt.Open(path)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func ensureDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("storage path is required")
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	return nil
}
