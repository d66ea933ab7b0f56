// Package engine resolves one duality check, from a parsed command to its
// resource side effects.
//
// A resolution runs Init, BaseRoll, ModifierResolution, Classification and
// ResourceSideEffects in that order. Store failures abort the resolution
// where they happen; writes already made are not rolled back.
package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/louisbranch/dualitydice/internal/core/dice"
	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/gm"
	"github.com/louisbranch/dualitydice/internal/duality/help"
	"github.com/louisbranch/dualitydice/internal/duality/ledger"
	"github.com/louisbranch/dualitydice/internal/duality/modifier"
	"github.com/louisbranch/dualitydice/internal/duality/sheet"
	apperrors "github.com/louisbranch/dualitydice/internal/platform/errors"
	"github.com/louisbranch/dualitydice/internal/platform/otel"
	otelattribute "go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ledger labels for Hope components the engine adds itself. Experience
// charges use the experience name.
const (
	LabelHopeResult      = "hope result"
	LabelCriticalSuccess = "critical success"
	LabelExperience      = "experience"
)

// Preset fixes the Hope and Fear dice instead of rolling them.
type Preset struct {
	Hope int
	Fear int
}

// Request is one check to resolve.
type Request struct {
	Sheet   sheet.Sheet
	Command modifier.Command
	// Mentions are actor ids asked to help.
	Mentions []string
	// UpdateAttributes applies the Hope, Stress and Fear outcome. Reaction
	// rolls leave it unset; experience and helper charges still apply.
	UpdateAttributes bool
	Preset           *Preset
}

// Detail is one entry of the modifier trail, in resolution order.
type Detail struct {
	Kind modifier.Kind
	// Name is the attribute key or the experience name.
	Name  string
	Sign  int
	Count int
	Sides int
	Rolls []int
	// Value is the signed contribution to the total.
	Value int
	// Raw is the unsigned stored value for attributes and experiences.
	Raw int
	// Insufficient marks an experience skipped for lack of Hope.
	Insufficient bool
	// HelpCount is the part of an advantage pool granted by helpers.
	HelpCount int
}

// HopeUpdate is the ledger outcome of a resolution.
type HopeUpdate struct {
	Original    int
	Final       int
	Capacity    int
	Components  []ledger.Component
	Calculation string
	NetChange   int
	// Written is set when the final value was stored.
	Written bool
}

// HasChange reports whether the ledger recorded any component.
func (h HopeUpdate) HasChange() bool { return len(h.Components) > 0 }

// StressUpdate is the critical success Stress relief.
type StressUpdate struct {
	Previous int
	Current  int
	Max      int
	// Updated is false when Stress was already 0.
	Updated bool
}

// Result is a resolved check.
type Result struct {
	RollID string
	Actor  string
	Reason string

	Hope        int
	Fear        int
	HopeSides   int
	FearSides   int
	CustomSides bool

	BaseTotal     int
	ModifierTotal int
	Total         int
	Details       []Detail

	Type            dice.ResultType
	Difficulty      *int
	MeetsDifficulty bool
	Outcome         dice.Outcome

	HopeUpdate HopeUpdate
	Stress     *StressUpdate
	FearUpdate *gm.FearUpdate
	Help       help.Result

	UpdateAttributes bool
}

// Engine resolves checks against a roller and a GM registry.
type Engine struct {
	cfg    Config
	roller dice.Roller
	gms    *gm.Registry
	tracer trace.Tracer
	newID  func() string
}

// New returns an engine. A nil roller falls back to a time-seeded source.
func New(cfg Config, roller dice.Roller, gms *gm.Registry) *Engine {
	if roller == nil {
		roller = dice.NewTimeSource()
	}
	return &Engine{
		cfg:    cfg.normalized(),
		roller: roller,
		gms:    gms,
		tracer: otel.Tracer("github.com/louisbranch/dualitydice/internal/duality/engine"),
		newID:  func() string { return uuid.NewString() },
	}
}

// Config returns the rules in use.
func (e *Engine) Config() Config { return e.cfg }

// Roller returns the random source in use.
func (e *Engine) Roller() dice.Roller { return e.roller }

// Resolve runs one check to completion.
func (e *Engine) Resolve(ctx context.Context, req Request) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "duality.resolve", trace.WithAttributes(
		otelattribute.String("duality.actor_id", req.Sheet.ID()),
		otelattribute.String("duality.group_id", req.Sheet.GroupID()),
		otelattribute.Bool("duality.update_attributes", req.UpdateAttributes),
	))
	defer span.End()

	res, err := e.resolve(ctx, span, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(
		otelattribute.String("duality.roll_id", res.RollID),
		otelattribute.String("duality.result_type", res.Type.String()),
		otelattribute.Int("duality.total", res.Total),
	)
	return res, nil
}

func (e *Engine) resolve(ctx context.Context, span trace.Span, req Request) (Result, error) {
	res := Result{
		RollID:           e.newID(),
		Actor:            req.Sheet.Name(),
		Reason:           req.Command.Reason,
		Difficulty:       req.Command.Difficulty,
		UpdateAttributes: req.UpdateAttributes,
	}
	mods := append([]modifier.Modifier(nil), req.Command.Modifiers...)

	// Preset dice are validated before any helper pays.
	if err := e.baseRoll(&res, req); err != nil {
		return Result{}, err
	}
	span.AddEvent("base_roll", trace.WithAttributes(
		otelattribute.Int("duality.hope", res.Hope),
		otelattribute.Int("duality.fear", res.Fear),
	))

	helped, err := help.Resolve(ctx, e.cfg.Help, req.Sheet, req.Mentions)
	if err != nil {
		return Result{}, storeFailure("resolve help", err)
	}
	res.Help = helped
	if helped.Advantage > 0 {
		mods = append(mods, modifier.Modifier{Kind: modifier.KindAdvantage, Count: helped.Advantage, FromHelp: true})
	}
	span.AddEvent("help", trace.WithAttributes(otelattribute.Int("duality.helpers", helped.Succeeded())))

	stored, err := req.Sheet.IntOr(ctx, attribute.Hope, 0)
	if err != nil {
		return Result{}, storeFailure("read hope", err)
	}
	capacity, err := req.Sheet.Capacity(ctx, attribute.HopeMax, e.cfg.DefaultHopeMax)
	if err != nil {
		return Result{}, storeFailure("read hope cap", err)
	}
	hope := ledger.New(stored, capacity)

	if err := e.applyModifiers(ctx, &res, req.Sheet, mods, stored, hope); err != nil {
		return Result{}, err
	}
	span.AddEvent("modifiers", trace.WithAttributes(otelattribute.Int("duality.modifier_total", res.ModifierTotal)))

	outcome, err := dice.EvaluateOutcome(dice.OutcomeRequest{
		Hope:       res.Hope,
		Fear:       res.Fear,
		HopeSides:  res.HopeSides,
		FearSides:  res.FearSides,
		Modifier:   res.ModifierTotal,
		Difficulty: res.Difficulty,
	})
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeDualityInvalidDiff, "evaluate outcome", err)
	}
	res.Total = outcome.Total
	res.Type = outcome.Type
	res.MeetsDifficulty = outcome.MeetsDifficulty
	res.Outcome = outcome.Outcome
	span.AddEvent("classification", trace.WithAttributes(otelattribute.String("duality.result_type", res.Type.String())))

	if req.UpdateAttributes {
		if err := e.applySideEffects(ctx, &res, req.Sheet, hope); err != nil {
			return Result{}, err
		}
	}

	res.HopeUpdate = HopeUpdate{
		Original:    hope.Original(),
		Final:       hope.Final(),
		Capacity:    hope.Capacity(),
		Components:  hope.Components(),
		Calculation: hope.Calculation(),
		NetChange:   hope.NetChange(),
	}
	if res.HopeUpdate.Final != stored || hope.HasChange() {
		if err := req.Sheet.Update(ctx, attribute.Hope, res.HopeUpdate.Final); err != nil {
			return Result{}, storeFailure("write hope", err)
		}
		res.HopeUpdate.Written = true
	}
	span.AddEvent("side_effects", trace.WithAttributes(otelattribute.Int("duality.hope_final", res.HopeUpdate.Final)))
	return res, nil
}

func (e *Engine) baseRoll(res *Result, req Request) error {
	res.HopeSides, res.FearSides = e.cfg.BaseDiceSides, e.cfg.BaseDiceSides
	if sides := req.Command.DiceSides; sides != nil {
		if sides.Hope != 0 {
			res.HopeSides = sides.Hope
		}
		if sides.Fear != 0 {
			res.FearSides = sides.Fear
		}
		res.CustomSides = true
	}

	if p := req.Preset; p != nil {
		if p.Hope < 1 || p.Hope > res.HopeSides || p.Fear < 1 || p.Fear > res.FearSides {
			return apperrors.WithMetadata(apperrors.CodeDualityInvalidDie, "preset dice out of range", map[string]string{
				"Hope":      strconv.Itoa(p.Hope),
				"Fear":      strconv.Itoa(p.Fear),
				"HopeSides": strconv.Itoa(res.HopeSides),
				"FearSides": strconv.Itoa(res.FearSides),
			})
		}
		res.Hope, res.Fear = p.Hope, p.Fear
	} else {
		res.Hope = e.roller.Roll(res.HopeSides)
		res.Fear = e.roller.Roll(res.FearSides)
	}
	res.BaseTotal = res.Hope + res.Fear
	return nil
}

// applyModifiers adds the modifier trail in fixed order: net advantage,
// extra dice, named experiences, anonymous experiences, attributes,
// constants. stored is the Hope value experience charges are checked against.
func (e *Engine) applyModifiers(ctx context.Context, res *Result, s sheet.Sheet, mods []modifier.Modifier, stored int, hope *ledger.Hope) error {
	add := func(d Detail) {
		res.Details = append(res.Details, d)
		res.ModifierTotal += d.Value
	}

	if net := modifier.NetAdvantage(mods); net != 0 {
		add(e.advantage(net, helpAdvantage(mods)))
	}

	for _, m := range byKind(mods, modifier.KindExtraDice) {
		rolled, err := dice.RollWith(e.roller, []dice.Spec{{Sides: m.Sides, Count: m.Count}})
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDiceInvalidSpec, "roll extra dice", err)
		}
		add(Detail{
			Kind:  modifier.KindExtraDice,
			Sign:  m.Sign,
			Count: m.Count,
			Sides: m.Sides,
			Rolls: rolled.Rolls[0].Results,
			Value: rolled.Total * m.Sign,
		})
	}

	for _, m := range byKind(mods, modifier.KindExperience) {
		d := Detail{Kind: modifier.KindExperience, Name: m.Name, Sign: m.Sign}
		if stored-hope.Consumed() <= 0 {
			d.Insufficient = true
			add(d)
			continue
		}
		v, err := s.Experience(ctx, m.Name)
		if err != nil {
			return storeFailure("read experience", err)
		}
		hope.Add(ledger.Consume, 1, m.Name)
		d.Raw = abs(v)
		d.Value = v * m.Sign
		add(d)
	}

	for _, m := range byKind(mods, modifier.KindAnonymousExperience) {
		d := Detail{Kind: modifier.KindAnonymousExperience, Sign: sign(m.Value), Raw: abs(m.Value)}
		if stored-hope.Consumed() <= 0 {
			d.Insufficient = true
			add(d)
			continue
		}
		hope.Add(ledger.Consume, 1, LabelExperience)
		d.Value = m.Value
		add(d)
	}

	for _, m := range byKind(mods, modifier.KindAttribute) {
		key := attribute.Resolve(m.Name)
		v, err := s.IntOr(ctx, key, 0)
		if err != nil {
			return storeFailure("read attribute", err)
		}
		add(Detail{Kind: modifier.KindAttribute, Name: string(key), Sign: m.Sign, Raw: v, Value: v * m.Sign})
	}

	for _, m := range byKind(mods, modifier.KindConstant) {
		add(Detail{Kind: modifier.KindConstant, Sign: sign(m.Value), Raw: abs(m.Value), Value: m.Value})
	}
	return nil
}

// advantage rolls |net| advantage dice, keeping the highest for a positive
// pool and subtracting the lowest for a negative one.
func (e *Engine) advantage(net, fromHelp int) Detail {
	n := abs(net)
	rolls := make([]int, n)
	for i := range rolls {
		rolls[i] = e.roller.Roll(e.cfg.AdvantageDiceSides)
	}
	roll := dice.Roll{Sides: e.cfg.AdvantageDiceSides, Results: rolls}
	if net > 0 {
		return Detail{
			Kind:      modifier.KindAdvantage,
			Sign:      1,
			Count:     n,
			Sides:     roll.Sides,
			Rolls:     rolls,
			Value:     roll.Highest(),
			HelpCount: min(fromHelp, n),
		}
	}
	return Detail{
		Kind:  modifier.KindDisadvantage,
		Sign:  -1,
		Count: n,
		Sides: roll.Sides,
		Rolls: rolls,
		Value: -roll.Lowest(),
	}
}

func (e *Engine) applySideEffects(ctx context.Context, res *Result, s sheet.Sheet, hope *ledger.Hope) error {
	switch res.Type {
	case dice.ResultHope:
		hope.Add(ledger.Gain, e.cfg.HopeWinBonus, LabelHopeResult)
	case dice.ResultCritical:
		hope.Add(ledger.Gain, e.cfg.HopeWinBonus, LabelCriticalSuccess)
		stress, err := e.relieveStress(ctx, s)
		if err != nil {
			return err
		}
		res.Stress = stress
	case dice.ResultFear:
		if e.gms == nil {
			return nil
		}
		update, err := e.gms.IncreaseFear(ctx, s, e.cfg.MaxFear)
		if err != nil {
			return storeFailure("increase gm fear", err)
		}
		res.FearUpdate = update
	}
	return nil
}

func (e *Engine) relieveStress(ctx context.Context, s sheet.Sheet) (*StressUpdate, error) {
	current, err := s.IntOr(ctx, attribute.Stress, 0)
	if err != nil {
		return nil, storeFailure("read stress", err)
	}
	capacity, err := s.Capacity(ctx, attribute.StressMax, attribute.Default(attribute.StressMax))
	if err != nil {
		return nil, storeFailure("read stress cap", err)
	}
	update := &StressUpdate{Previous: current, Current: current, Max: capacity}
	if current <= 0 {
		return update, nil
	}
	update.Current = current - 1
	update.Updated = true
	if err := s.Update(ctx, attribute.Stress, update.Current); err != nil {
		return nil, storeFailure("write stress", err)
	}
	return update, nil
}

func storeFailure(op string, err error) error {
	return apperrors.Wrap(apperrors.CodeStoreUnavailable, fmt.Sprintf("%s failed", op), err)
}

func byKind(mods []modifier.Modifier, kind modifier.Kind) []modifier.Modifier {
	var out []modifier.Modifier
	for _, m := range mods {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func helpAdvantage(mods []modifier.Modifier) int {
	n := 0
	for _, m := range mods {
		if m.Kind == modifier.KindAdvantage && m.FromHelp {
			n += m.Count
		}
	}
	return n
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
