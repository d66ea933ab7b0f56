// Package storage defines the persistence boundary for actors, their sheet
// values, and per-group settings.
//
// Sheet keys are case-insensitive: adapters lowercase every key before
// reading or writing.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// CardKey is the string value an applied card template is stored under.
const CardKey = "card"

// Actor is a participant that can roll and hold sheet values.
type Actor struct {
	ID      string
	Name    string
	GroupID string
}

// ActorStore persists actor identities.
type ActorStore interface {
	UpsertActor(ctx context.Context, actor Actor) error
	GetActor(ctx context.Context, actorID string) (Actor, error)
}

// ResourceStore persists per-actor sheet values.
type ResourceStore interface {
	// GetInt returns the value and whether it has ever been written.
	GetInt(ctx context.Context, actorID, key string) (int, bool, error)
	SetInt(ctx context.Context, actorID, key string, value int) error
	GetString(ctx context.Context, actorID, key string) (string, bool, error)
	SetString(ctx context.Context, actorID, key, value string) error
	// ListInts returns every integer value written for the actor.
	ListInts(ctx context.Context, actorID string) (map[string]int, error)
	// ApplyCardTemplate renders the named card template against the actor's
	// current values and stores the result under CardKey.
	ApplyCardTemplate(ctx context.Context, actorID, template string) (string, error)
}

// GroupStore persists per-group string settings such as the bound GM.
type GroupStore interface {
	GetGroupValue(ctx context.Context, groupID, key string) (string, bool, error)
	SetGroupValue(ctx context.Context, groupID, key, value string) error
	DeleteGroupValue(ctx context.Context, groupID, key string) error
}

// Store is the full persistence surface used by the duality services.
type Store interface {
	ActorStore
	ResourceStore
	GroupStore
	Close() error
}
