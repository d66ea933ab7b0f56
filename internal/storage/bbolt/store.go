// Package bbolt provides a BoltDB-backed actor sheet and group settings store.
//
// Layout:
//
//	actor/{actor_id}            JSON encoded storage.Actor
//	int/{actor_id}/{key}        decimal integer
//	string/{actor_id}/{key}     raw string
//	group/{group_id}/{key}      raw string
//
// Each prefix lives in its own top-level bucket with nested per-owner buckets.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/dualitydice/internal/storage"
	"github.com/louisbranch/dualitydice/internal/storage/card"
	"go.etcd.io/bbolt"
)

const (
	actorBucket  = "actor"
	intBucket    = "int"
	stringBucket = "string"
	groupBucket  = "group"
)

// Store provides a BoltDB-backed storage.Store.
type Store struct {
	db *bbolt.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// UpsertActor persists an actor record.
func (s *Store) UpsertActor(ctx context.Context, actor storage.Actor) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	actor.ID = strings.TrimSpace(actor.ID)
	if actor.ID == "" {
		return fmt.Errorf("actor id is required")
	}
	payload, err := json.Marshal(actor)
	if err != nil {
		return fmt.Errorf("marshal actor: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(actorBucket)).Put([]byte(actor.ID), payload)
	})
}

// GetActor fetches an actor by id.
func (s *Store) GetActor(ctx context.Context, actorID string) (storage.Actor, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Actor{}, err
	}
	var actor storage.Actor
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(actorBucket)).Get([]byte(strings.TrimSpace(actorID)))
		if payload == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(payload, &actor); err != nil {
			return fmt.Errorf("unmarshal actor: %w", err)
		}
		return nil
	})
	if err != nil {
		return storage.Actor{}, err
	}
	return actor, nil
}

func (s *Store) GetInt(ctx context.Context, actorID, key string) (int, bool, error) {
	raw, ok, err := s.get(ctx, intBucket, actorID, key)
	if err != nil || !ok {
		return 0, false, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("decode int %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) SetInt(ctx context.Context, actorID, key string, value int) error {
	return s.put(ctx, intBucket, actorID, key, strconv.Itoa(value))
}

func (s *Store) GetString(ctx context.Context, actorID, key string) (string, bool, error) {
	return s.get(ctx, stringBucket, actorID, key)
}

func (s *Store) SetString(ctx context.Context, actorID, key, value string) error {
	return s.put(ctx, stringBucket, actorID, key, value)
}

func (s *Store) ListInts(ctx context.Context, actorID string) (map[string]int, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	err := s.db.View(func(tx *bbolt.Tx) error {
		owner := tx.Bucket([]byte(intBucket)).Bucket([]byte(actorID))
		if owner == nil {
			return nil
		}
		return owner.ForEach(func(k, v []byte) error {
			value, err := strconv.Atoi(string(v))
			if err != nil {
				return fmt.Errorf("decode int %s: %w", k, err)
			}
			out[string(k)] = value
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

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

func (s *Store) GetGroupValue(ctx context.Context, groupID, key string) (string, bool, error) {
	return s.get(ctx, groupBucket, groupID, key)
}

func (s *Store) SetGroupValue(ctx context.Context, groupID, key, value string) error {
	return s.put(ctx, groupBucket, groupID, key, value)
}

func (s *Store) DeleteGroupValue(ctx context.Context, groupID, key string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		owner := tx.Bucket([]byte(groupBucket)).Bucket([]byte(groupID))
		if owner == nil {
			return nil
		}
		return owner.Delete([]byte(strings.ToLower(key)))
	})
}

func (s *Store) get(ctx context.Context, bucket, owner, key string) (string, bool, error) {
	if err := s.ready(ctx); err != nil {
		return "", false, err
	}
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket)).Bucket([]byte(owner))
		if b == nil {
			return nil
		}
		if raw := b.Get([]byte(strings.ToLower(key))); raw != nil {
			value, found = string(raw), true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("get %s %s: %w", bucket, key, err)
	}
	return value, found, nil
}

func (s *Store) put(ctx context.Context, bucket, owner, key, value string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if owner == "" {
		return fmt.Errorf("%s owner id is required", bucket)
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket([]byte(bucket)).CreateBucketIfNotExists([]byte(owner))
		if err != nil {
			return err
		}
		return b.Put([]byte(strings.ToLower(key)), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("put %s %s: %w", bucket, key, err)
	}
	return nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{actorBucket, intBucket, stringBucket, groupBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
