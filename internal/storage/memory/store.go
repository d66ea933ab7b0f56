// Package memory provides an in-process storage implementation used by tests
// and by single-session tools that do not need persistence.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/louisbranch/dualitydice/internal/storage"
	"github.com/louisbranch/dualitydice/internal/storage/card"
)

// Store keeps all state in maps guarded by one mutex.
type Store struct {
	mu      sync.RWMutex
	actors  map[string]storage.Actor
	ints    map[string]map[string]int
	strings map[string]map[string]string
	groups  map[string]map[string]string
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		actors:  make(map[string]storage.Actor),
		ints:    make(map[string]map[string]int),
		strings: make(map[string]map[string]string),
		groups:  make(map[string]map[string]string),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// UpsertActor creates or replaces an actor.
func (s *Store) UpsertActor(ctx context.Context, actor storage.Actor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	actor.ID = strings.TrimSpace(actor.ID)
	if actor.ID == "" {
		return fmt.Errorf("actor id is required")
	}
	s.mu.Lock()
	s.actors[actor.ID] = actor
	s.mu.Unlock()
	return nil
}

// GetActor returns storage.ErrNotFound for unknown ids.
func (s *Store) GetActor(ctx context.Context, actorID string) (storage.Actor, error) {
	if err := ctx.Err(); err != nil {
		return storage.Actor{}, err
	}
	s.mu.RLock()
	actor, ok := s.actors[strings.TrimSpace(actorID)]
	s.mu.RUnlock()
	if !ok {
		return storage.Actor{}, storage.ErrNotFound
	}
	return actor, nil
}

func (s *Store) GetInt(ctx context.Context, actorID, key string) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.ints[actorID][strings.ToLower(key)]
	return v, ok, nil
}

func (s *Store) SetInt(ctx context.Context, actorID, key string, value int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.ints[actorID]
	if !ok {
		values = make(map[string]int)
		s.ints[actorID] = values
	}
	values[strings.ToLower(key)] = value
	return nil
}

func (s *Store) GetString(ctx context.Context, actorID, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.strings[actorID][strings.ToLower(key)]
	return v, ok, nil
}

func (s *Store) SetString(ctx context.Context, actorID, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.strings[actorID]
	if !ok {
		values = make(map[string]string)
		s.strings[actorID] = values
	}
	values[strings.ToLower(key)] = value
	return nil
}

func (s *Store) ListInts(ctx context.Context, actorID string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.ints[actorID]))
	for k, v := range s.ints[actorID] {
		out[k] = v
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
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.groups[groupID][strings.ToLower(key)]
	return v, ok, nil
}

func (s *Store) SetGroupValue(ctx context.Context, groupID, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.groups[groupID]
	if !ok {
		values = make(map[string]string)
		s.groups[groupID] = values
	}
	values[strings.ToLower(key)] = value
	return nil
}

func (s *Store) DeleteGroupValue(ctx context.Context, groupID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.groups[groupID], strings.ToLower(key))
	s.mu.Unlock()
	return nil
}
