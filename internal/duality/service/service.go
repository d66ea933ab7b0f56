// Package service composes the duality store, engine and command handler
// shared by every transport.
package service

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/louisbranch/dualitydice/internal/core/dice"
	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/command"
	"github.com/louisbranch/dualitydice/internal/duality/engine"
	"github.com/louisbranch/dualitydice/internal/duality/gm"
	"github.com/louisbranch/dualitydice/internal/duality/sheet"
	"github.com/louisbranch/dualitydice/internal/platform/config"
	apperrors "github.com/louisbranch/dualitydice/internal/platform/errors"
	"github.com/louisbranch/dualitydice/internal/storage"
	"github.com/louisbranch/dualitydice/internal/storage/backend"
)

// ErrNotCommand reports text that is not a command line.
var ErrNotCommand = apperrors.New(apperrors.CodeCommandEmpty, "text is not a command line")

// Config selects the store and reply locale.
type Config struct {
	StoreDriver string `env:"DUALITY_STORE_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DUALITY_DB_PATH"      envDefault:"data/duality.db"`
	Locale      string `env:"DUALITY_LOCALE"       envDefault:"en"`

	Engine engine.Config `env:"-"`
}

// LoadConfig reads Config and the engine rules from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	rules, err := engine.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Engine = rules
	return cfg, nil
}

// BindFlags lets command-line flags override the store and locale settings.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.StoreDriver, "store-driver", c.StoreDriver, "storage driver: sqlite, bbolt or memory")
	fs.StringVar(&c.DBPath, "db-path", c.DBPath, "storage file for persistent drivers")
	fs.StringVar(&c.Locale, "locale", c.Locale, "default reply locale")
}

// Service executes commands and sheet edits against one store. Writes are
// serialized: one command resolves to completion before the next starts.
type Service struct {
	mu       sync.Mutex
	store    storage.Store
	engine   *engine.Engine
	commands *command.Handler
	locale   string
}

// Open opens the configured store and builds a service on it.
func Open(cfg Config, logger *log.Logger) (*Service, error) {
	store, err := backend.Open(cfg.StoreDriver, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	return New(store, cfg, nil, logger), nil
}

// New builds a service on store. A nil roller uses a time-seeded source.
func New(store storage.Store, cfg Config, roller dice.Roller, logger *log.Logger) *Service {
	gms := gm.NewRegistry(store)
	eng := engine.New(cfg.Engine, roller, gms)
	return &Service{
		store:    store,
		engine:   eng,
		commands: command.NewHandler(eng, gms, store, logger, cfg.Locale),
		locale:   cfg.Locale,
	}
}

// Close closes the store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Engine returns the rules engine.
func (s *Service) Engine() *engine.Engine { return s.engine }

// Locale returns the default reply locale.
func (s *Service) Locale() string { return s.locale }

// Request is a raw command line from a transport.
type Request struct {
	Actor  storage.Actor
	Text   string
	Locale string
	// Mentions are appended to the `@id` tokens found in Text.
	Mentions []string
}

// Execute parses and runs a command line. Text without a command prefix
// returns ErrNotCommand.
func (s *Service) Execute(ctx context.Context, req Request) (command.Reply, error) {
	line, ok := command.ParseLine(req.Text)
	if !ok {
		return command.Reply{}, ErrNotCommand
	}
	for _, id := range req.Mentions {
		if id = strings.TrimSpace(id); id != "" {
			line.Mentions = append(line.Mentions, id)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands.Execute(ctx, command.Request{Actor: req.Actor, Line: line, Locale: req.Locale}), nil
}

// Card is an actor's stored values and rendered card.
type Card struct {
	Actor  storage.Actor
	Values map[string]int
	Text   string
}

// SetValue writes a sheet value by key, label or alias and refreshes the
// actor's card. Unknown names are stored as experiences.
func (s *Service) SetValue(ctx context.Context, actor storage.Actor, name string, value int) (attribute.Key, Card, error) {
	key := attribute.Resolve(name)
	if key == "" {
		return "", Card{}, apperrors.New(apperrors.CodeDualityInvalidAttrKey, "attribute name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, err := s.register(ctx, actor)
	if err != nil {
		return "", Card{}, err
	}
	if err := sh.Update(ctx, key, value); err != nil {
		return "", Card{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "update sheet", err)
	}
	card, err := s.Card(ctx, sh.Actor())
	return key, card, err
}

// Card returns an actor's stored values and card text.
func (s *Service) Card(ctx context.Context, actor storage.Actor) (Card, error) {
	actor.ID = strings.TrimSpace(actor.ID)
	if actor.ID == "" {
		return Card{}, apperrors.New(apperrors.CodeActorIDRequired, "actor id is required")
	}
	stored, err := s.store.GetActor(ctx, actor.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return Card{}, apperrors.Wrap(apperrors.CodeNotFound, "actor not found", err)
	case err != nil:
		return Card{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "get actor", err)
	}
	values, err := s.store.ListInts(ctx, actor.ID)
	if err != nil {
		return Card{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "list values", err)
	}
	text, _, err := s.store.GetString(ctx, actor.ID, storage.CardKey)
	if err != nil {
		return Card{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "get card", err)
	}
	return Card{Actor: stored, Values: values, Text: text}, nil
}

func (s *Service) register(ctx context.Context, actor storage.Actor) (sheet.Sheet, error) {
	actor.ID = strings.TrimSpace(actor.ID)
	if actor.ID == "" {
		return sheet.Sheet{}, apperrors.New(apperrors.CodeActorIDRequired, "actor id is required")
	}
	// Blank fields keep the registered identity.
	if actor.Name == "" || actor.GroupID == "" {
		existing, err := s.store.GetActor(ctx, actor.ID)
		switch {
		case err == nil:
			if actor.Name == "" {
				actor.Name = existing.Name
			}
			if actor.GroupID == "" {
				actor.GroupID = existing.GroupID
			}
		case !errors.Is(err, storage.ErrNotFound):
			return sheet.Sheet{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "get actor", err)
		}
	}
	if err := s.store.UpsertActor(ctx, actor); err != nil {
		return sheet.Sheet{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "register actor", err)
	}
	return sheet.New(s.store, actor), nil
}
