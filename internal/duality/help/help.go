// Package help resolves @mentions on a roll into paid helper advantage.
package help

import (
	"context"
	"strings"

	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/sheet"
)

// Config controls the help rules.
type Config struct {
	Enabled          bool `env:"DUALITY_HELP_ENABLED" envDefault:"true"`
	HopeCost         int  `env:"DUALITY_HELP_HOPE_COST" envDefault:"1"`
	AdvantagePerHelp int  `env:"DUALITY_HELP_ADVANTAGE" envDefault:"1"`
	MaxHelpers       int  `env:"DUALITY_HELP_MAX_HELPERS" envDefault:"5"`
}

// DefaultConfig returns the standard help rules.
func DefaultConfig() Config {
	return Config{Enabled: true, HopeCost: 1, AdvantagePerHelp: 1, MaxHelpers: 5}
}

// Outcome is the result for one evaluated helper.
type Outcome struct {
	ActorID  string
	Name     string
	Old      int
	New      int
	Capacity int
	Success  bool
}

// Result is the resolved help for one roll.
type Result struct {
	// Advantage is the total advantage granted by successful helpers.
	Advantage int
	Helpers   []Outcome
	// SelfHelp is set when the roller mentioned themselves.
	SelfHelp bool
}

// Succeeded returns the number of helpers who paid.
func (r Result) Succeeded() int {
	n := 0
	for _, h := range r.Helpers {
		if h.Success {
			n++
		}
	}
	return n
}

// Resolve charges each distinct mentioned helper in order. Mentions of the
// roller and mentions that do not resolve to another actor are skipped.
// Evaluation stops once MaxHelpers helpers have paid.
func Resolve(ctx context.Context, cfg Config, roller sheet.Sheet, mentions []string) (Result, error) {
	var res Result
	if !cfg.Enabled || len(mentions) == 0 {
		return res, nil
	}

	seen := make(map[string]bool, len(mentions))
	for _, mention := range mentions {
		mention = strings.TrimSpace(mention)
		if mention == "" || seen[mention] {
			continue
		}
		seen[mention] = true
		if mention == roller.ID() {
			res.SelfHelp = true
			continue
		}
		if cfg.MaxHelpers > 0 && res.Succeeded() >= cfg.MaxHelpers {
			break
		}

		helper, err := roller.ScopedView(ctx, mention)
		if err != nil {
			return res, err
		}
		if helper.Same(roller) {
			continue
		}

		outcome, err := charge(ctx, cfg, helper)
		if err != nil {
			return res, err
		}
		res.Helpers = append(res.Helpers, outcome)
		if outcome.Success {
			res.Advantage += cfg.AdvantagePerHelp
		}
	}
	return res, nil
}

func charge(ctx context.Context, cfg Config, helper sheet.Sheet) (Outcome, error) {
	current, err := helper.IntOr(ctx, attribute.Hope, 0)
	if err != nil {
		return Outcome{}, err
	}
	capacity, err := helper.Capacity(ctx, attribute.HopeMax, attribute.DefaultHopeMax)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{
		ActorID:  helper.ID(),
		Name:     helper.Name(),
		Old:      current,
		New:      current,
		Capacity: capacity,
	}
	if current < cfg.HopeCost {
		return out, nil
	}
	out.New = current - cfg.HopeCost
	if err := helper.Update(ctx, attribute.Hope, out.New); err != nil {
		return Outcome{}, err
	}
	out.Success = true
	return out, nil
}
