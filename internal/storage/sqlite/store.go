// Package sqlite provides a SQLite-backed actor sheet and group settings store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/dualitydice/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/dualitydice/internal/storage"
	"github.com/louisbranch/dualitydice/internal/storage/card"
	"github.com/louisbranch/dualitydice/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists actors, sheet values and group settings in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// UpsertActor creates or replaces one actor.
func (s *Store) UpsertActor(ctx context.Context, actor storage.Actor) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id := strings.TrimSpace(actor.ID)
	if id == "" {
		return fmt.Errorf("actor id is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO actors (id, name, group_id, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   group_id = excluded.group_id,
		   updated_at = excluded.updated_at`,
		id,
		strings.TrimSpace(actor.Name),
		strings.TrimSpace(actor.GroupID),
		nowMillis(),
	)
	if err != nil {
		return fmt.Errorf("upsert actor: %w", err)
	}
	return nil
}

// GetActor returns one actor by id.
func (s *Store) GetActor(ctx context.Context, actorID string) (storage.Actor, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Actor{}, err
	}
	var actor storage.Actor
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, group_id FROM actors WHERE id = ?`,
		strings.TrimSpace(actorID),
	).Scan(&actor.ID, &actor.Name, &actor.GroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Actor{}, storage.ErrNotFound
		}
		return storage.Actor{}, fmt.Errorf("get actor: %w", err)
	}
	return actor, nil
}

// GetInt returns one sheet integer.
func (s *Store) GetInt(ctx context.Context, actorID, key string) (int, bool, error) {
	if err := s.ready(ctx); err != nil {
		return 0, false, err
	}
	var value int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT value FROM actor_ints WHERE actor_id = ? AND key = ?`,
		actorID,
		strings.ToLower(key),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get int %s: %w", key, err)
	}
	return value, true, nil
}

// SetInt writes one sheet integer.
func (s *Store) SetInt(ctx context.Context, actorID, key string, value int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO actor_ints (actor_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(actor_id, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		actorID,
		strings.ToLower(key),
		value,
		nowMillis(),
	)
	if err != nil {
		return fmt.Errorf("set int %s: %w", key, err)
	}
	return nil
}

// GetString returns one sheet string.
func (s *Store) GetString(ctx context.Context, actorID, key string) (string, bool, error) {
	if err := s.ready(ctx); err != nil {
		return "", false, err
	}
	var value string
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT value FROM actor_strings WHERE actor_id = ? AND key = ?`,
		actorID,
		strings.ToLower(key),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get string %s: %w", key, err)
	}
	return value, true, nil
}

// SetString writes one sheet string.
func (s *Store) SetString(ctx context.Context, actorID, key, value string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO actor_strings (actor_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(actor_id, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		actorID,
		strings.ToLower(key),
		value,
		nowMillis(),
	)
	if err != nil {
		return fmt.Errorf("set string %s: %w", key, err)
	}
	return nil
}

// ListInts returns every integer written for the actor.
func (s *Store) ListInts(ctx context.Context, actorID string) (map[string]int, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT key, value FROM actor_ints WHERE actor_id = ? ORDER BY key`,
		actorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			key   string
			value int
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan int: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ints: %w", err)
	}
	return out, nil
}

// ApplyCardTemplate renders and stores the actor's card.
func (s *Store) ApplyCardTemplate(ctx context.Context, actorID, template string) (string, error) {
	text, err := card.Build(ctx, s, actorID, template)
	if err != nil {
		return "", err
	}
	if err := s.SetString(ctx, actorID, storage.CardKey, text); err != nil {
		return "", err
	}
	return text, nil
}

// GetGroupValue returns one group setting.
func (s *Store) GetGroupValue(ctx context.Context, groupID, key string) (string, bool, error) {
	if err := s.ready(ctx); err != nil {
		return "", false, err
	}
	var value string
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT value FROM group_values WHERE group_id = ? AND key = ?`,
		groupID,
		strings.ToLower(key),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get group value %s: %w", key, err)
	}
	return value, true, nil
}

// SetGroupValue writes one group setting.
func (s *Store) SetGroupValue(ctx context.Context, groupID, key, value string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO group_values (group_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(group_id, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		groupID,
		strings.ToLower(key),
		value,
		nowMillis(),
	)
	if err != nil {
		return fmt.Errorf("set group value %s: %w", key, err)
	}
	return nil
}

// DeleteGroupValue removes one group setting. Missing values are not an error.
func (s *Store) DeleteGroupValue(ctx context.Context, groupID, key string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM group_values WHERE group_id = ? AND key = ?`,
		groupID,
		strings.ToLower(key),
	); err != nil {
		return fmt.Errorf("delete group value %s: %w", key, err)
	}
	return nil
}
