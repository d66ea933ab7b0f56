// Package gm binds a group to its GM and applies Fear outcomes to the GM.
package gm

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/sheet"
	"github.com/louisbranch/dualitydice/internal/storage"
)

// Registry stores the group to GM binding.
type Registry struct {
	store storage.GroupStore
}

// NewRegistry returns a registry backed by store.
func NewRegistry(store storage.GroupStore) *Registry {
	return &Registry{store: store}
}

// Lookup returns the GM bound to groupID.
func (r *Registry) Lookup(ctx context.Context, groupID string) (string, bool, error) {
	if strings.TrimSpace(groupID) == "" {
		return "", false, nil
	}
	gmID, ok, err := r.store.GetGroupValue(ctx, groupID, sheet.GMKey)
	if err != nil {
		return "", false, fmt.Errorf("lookup gm for %s: %w", groupID, err)
	}
	if !ok || gmID == "" {
		return "", false, nil
	}
	return gmID, true, nil
}

// Become binds the sheet's actor as GM of its group, sets the actor's Fear
// cap to maxFear and applies the GM card. Existing Fear is kept.
func (r *Registry) Become(ctx context.Context, s sheet.Sheet, maxFear int) (string, error) {
	if s.GroupID() == "" {
		return "", fmt.Errorf("gm binding requires a group")
	}
	if err := r.store.SetGroupValue(ctx, s.GroupID(), sheet.GMKey, s.ID()); err != nil {
		return "", fmt.Errorf("bind gm for %s: %w", s.GroupID(), err)
	}
	if err := s.SetInt(ctx, attribute.FearMax, maxFear); err != nil {
		return "", err
	}
	return s.RefreshCard(ctx)
}

// Resign clears the binding of groupID and returns the previous GM, if any.
func (r *Registry) Resign(ctx context.Context, groupID string) (string, bool, error) {
	gmID, ok, err := r.Lookup(ctx, groupID)
	if err != nil || !ok {
		return "", false, err
	}
	if err := r.store.DeleteGroupValue(ctx, groupID, sheet.GMKey); err != nil {
		return "", false, fmt.Errorf("resign gm for %s: %w", groupID, err)
	}
	return gmID, true, nil
}

// FearUpdate reports the GM Fear change caused by one roll.
type FearUpdate struct {
	GMID     string
	GMName   string
	Previous int
	Current  int
	Max      int
	// Updated is false when Fear was already at Max.
	Updated bool
}

// IncreaseFear raises the Fear of the GM bound to the roller's group by one,
// up to maxFear. It returns nil when no GM is bound or the GM cannot be
// reached through a scoped view.
func (r *Registry) IncreaseFear(ctx context.Context, roller sheet.Sheet, maxFear int) (*FearUpdate, error) {
	gmID, ok, err := r.Lookup(ctx, roller.GroupID())
	if err != nil || !ok {
		return nil, err
	}

	gm := roller
	if gmID != roller.ID() {
		gm, err = roller.ScopedView(ctx, gmID)
		if err != nil {
			return nil, err
		}
		if gm.Same(roller) {
			return nil, nil
		}
	}

	current, err := gm.IntOr(ctx, attribute.Fear, 0)
	if err != nil {
		return nil, err
	}
	next := current + 1
	if next > maxFear {
		next = maxFear
	}
	update := &FearUpdate{
		GMID:     gm.ID(),
		GMName:   gm.Name(),
		Previous: current,
		Current:  next,
		Max:      maxFear,
		Updated:  next > current,
	}
	if !update.Updated {
		update.Current = current
		return update, nil
	}
	if err := gm.SetInt(ctx, attribute.Fear, next); err != nil {
		return nil, err
	}
	if err := gm.SetInt(ctx, attribute.FearMax, maxFear); err != nil {
		return nil, err
	}
	if _, err := gm.RefreshCard(ctx); err != nil {
		return nil, err
	}
	return update, nil
}
