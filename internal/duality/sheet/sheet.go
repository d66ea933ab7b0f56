// Package sheet gives actor-scoped access to character resources.
//
// A Sheet is bound to one actor for its lifetime. Acting on another actor's
// resources (a helper paying Hope, the GM gaining Fear) goes through
// ScopedView, which returns a new Sheet for the target and never mutates the
// caller's.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/storage"
	"github.com/louisbranch/dualitydice/internal/storage/card"
)

// GMKey is the group value holding the bound GM actor id.
const GMKey = "gm"

// Store is the storage surface a Sheet needs.
type Store interface {
	storage.ActorStore
	storage.ResourceStore
	storage.GroupStore
}

// Sheet reads and writes one actor's resources.
type Sheet struct {
	store Store
	actor storage.Actor
}

// New binds a sheet to actor. Actor.GroupID may be empty for private use.
func New(store Store, actor storage.Actor) Sheet {
	actor.ID = strings.TrimSpace(actor.ID)
	if strings.TrimSpace(actor.Name) == "" {
		actor.Name = actor.ID
	}
	return Sheet{store: store, actor: actor}
}

// ID returns the actor id.
func (s Sheet) ID() string { return s.actor.ID }

// Name returns the actor display name.
func (s Sheet) Name() string { return s.actor.Name }

// GroupID returns the group the sheet acts in.
func (s Sheet) GroupID() string { return s.actor.GroupID }

// Actor returns the bound actor.
func (s Sheet) Actor() storage.Actor { return s.actor }

// Store returns the underlying store.
func (s Sheet) Store() Store { return s.store }

// Same reports whether other is bound to the same actor.
func (s Sheet) Same(other Sheet) bool { return s.actor.ID == other.actor.ID }

// Int returns the stored value of key.
func (s Sheet) Int(ctx context.Context, key attribute.Key) (int, bool, error) {
	v, ok, err := s.store.GetInt(ctx, s.actor.ID, string(key))
	if err != nil {
		return 0, false, fmt.Errorf("read %s for %s: %w", key, s.actor.ID, err)
	}
	return v, ok, nil
}

// IntOr returns the stored value of key or def when unset.
func (s Sheet) IntOr(ctx context.Context, key attribute.Key, def int) (int, error) {
	v, ok, err := s.Int(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// IntOrDefault returns the stored value of key or its vocabulary default.
func (s Sheet) IntOrDefault(ctx context.Context, key attribute.Key) (int, error) {
	return s.IntOr(ctx, key, attribute.Default(key))
}

// Capacity returns the stored maximum for key, or def when unset or not
// positive.
func (s Sheet) Capacity(ctx context.Context, key attribute.Key, def int) (int, error) {
	v, ok, err := s.Int(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok || v <= 0 {
		return def, nil
	}
	return v, nil
}

// SetInt writes key without touching the card.
func (s Sheet) SetInt(ctx context.Context, key attribute.Key, value int) error {
	if err := s.store.SetInt(ctx, s.actor.ID, string(key), value); err != nil {
		return fmt.Errorf("write %s for %s: %w", key, s.actor.ID, err)
	}
	return nil
}

// Update writes key and refreshes the actor's card.
func (s Sheet) Update(ctx context.Context, key attribute.Key, value int) error {
	if err := s.SetInt(ctx, key, value); err != nil {
		return err
	}
	_, err := s.RefreshCard(ctx)
	return err
}

// IsGM reports whether the actor is the bound GM of its group.
func (s Sheet) IsGM(ctx context.Context) (bool, error) {
	if s.actor.GroupID == "" {
		return false, nil
	}
	gmID, ok, err := s.store.GetGroupValue(ctx, s.actor.GroupID, GMKey)
	if err != nil {
		return false, fmt.Errorf("read gm for %s: %w", s.actor.GroupID, err)
	}
	return ok && gmID == s.actor.ID, nil
}

// RefreshCard re-renders the actor's card: the GM template for the group's
// bound GM, the player template otherwise. Outside a group nothing happens.
func (s Sheet) RefreshCard(ctx context.Context) (string, error) {
	if s.actor.GroupID == "" {
		return "", nil
	}
	gm, err := s.IsGM(ctx)
	if err != nil {
		return "", err
	}
	template := card.Player
	if gm {
		template = card.GM
	}
	text, err := s.store.ApplyCardTemplate(ctx, s.actor.ID, template)
	if err != nil {
		return "", fmt.Errorf("apply %s card for %s: %w", template, s.actor.ID, err)
	}
	return text, nil
}

// HasExperience reports whether name is an experience stored on the sheet.
// Vocabulary keys such as hope or hp_max are never experiences.
func (s Sheet) HasExperience(ctx context.Context, name string) (bool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false, nil
	}
	if _, ok := attribute.Lookup(name); ok {
		return false, nil
	}
	_, ok, err := s.store.GetInt(ctx, s.actor.ID, name)
	if err != nil {
		return false, fmt.Errorf("lookup experience %s: %w", name, err)
	}
	return ok, nil
}

// Experience returns the stored experience value, 0 when unset.
func (s Sheet) Experience(ctx context.Context, name string) (int, error) {
	v, _, err := s.store.GetInt(ctx, s.actor.ID, strings.ToLower(name))
	if err != nil {
		return 0, fmt.Errorf("read experience %s: %w", name, err)
	}
	return v, nil
}

// ScopedView returns a sheet bound to the first non-blank target, in the
// caller's group. With no usable target it returns the caller itself, so
// callers detect failed delegation with Same.
func (s Sheet) ScopedView(ctx context.Context, targets ...string) (Sheet, error) {
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if target == s.actor.ID {
			return s, nil
		}
		actor, err := s.store.GetActor(ctx, target)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			actor = storage.Actor{ID: target, Name: target}
		case err != nil:
			return Sheet{}, fmt.Errorf("resolve actor %s: %w", target, err)
		}
		actor.GroupID = s.actor.GroupID
		return New(s.store, actor), nil
	}
	return s, nil
}
