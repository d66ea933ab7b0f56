// Package card renders the one-line name cards shown next to an actor.
package card

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/storage"
)

// Template names.
const (
	Player = "player"
	GM     = "gm"
)

var templates = map[string]string{
	Player: `{{.Name}} Hope {{attr "hope"}}/{{attr "hope_max"}} HP {{attr "hp"}}/{{attr "hp_max"}} Stress {{attr "stress"}}/{{attr "stress_max"}} Armor {{attr "armor"}}/{{attr "armor_max"}}`,
	GM:     `{{.Name}} Fear {{attr "fear"}}/{{attr "fear_max"}}`,
}

// Data is the input of a card render.
type Data struct {
	Name   string
	Values map[string]int
}

// Render executes the named template. Missing values fall back to their
// attribute defaults.
func Render(name string, data Data) (string, error) {
	text, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown card template %q", name)
	}
	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"attr": func(key string) int {
			key = strings.ToLower(key)
			if v, ok := data.Values[key]; ok {
				return v
			}
			return attribute.Default(attribute.Key(key))
		},
	}).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse card template %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render card template %q: %w", name, err)
	}
	return buf.String(), nil
}

// Source is the read side a card render needs.
type Source interface {
	GetActor(ctx context.Context, actorID string) (storage.Actor, error)
	ListInts(ctx context.Context, actorID string) (map[string]int, error)
}

// Build loads the actor and its values and renders the named template.
// Unknown actors render under their id.
func Build(ctx context.Context, src Source, actorID, name string) (string, error) {
	actor, err := src.GetActor(ctx, actorID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("load actor %s: %w", actorID, err)
	}
	if actor.Name == "" {
		actor.Name = actorID
	}
	values, err := src.ListInts(ctx, actorID)
	if err != nil {
		return "", fmt.Errorf("load values %s: %w", actorID, err)
	}
	return Render(name, Data{Name: actor.Name, Values: values})
}
