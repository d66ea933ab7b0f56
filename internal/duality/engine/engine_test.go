package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/louisbranch/dualitydice/internal/core/dice"
	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/gm"
	"github.com/louisbranch/dualitydice/internal/duality/modifier"
	"github.com/louisbranch/dualitydice/internal/duality/sheet"
	apperrors "github.com/louisbranch/dualitydice/internal/platform/errors"
	"github.com/louisbranch/dualitydice/internal/storage"
	"github.com/louisbranch/dualitydice/internal/storage/memory"
)

type fixture struct {
	store  *memory.Store
	roller sheet.Sheet
	engine *Engine
}

func newFixture(t *testing.T, rolls ...int) fixture {
	t.Helper()
	store := memory.New()
	actor := storage.Actor{ID: "u1", Name: "Ash", GroupID: "g1"}
	if err := store.UpsertActor(context.Background(), actor); err != nil {
		t.Fatalf("upsert actor: %v", err)
	}
	return fixture{
		store:  store,
		roller: sheet.New(store, actor),
		engine: New(DefaultConfig(), dice.NewSequence(rolls...), gm.NewRegistry(store)),
	}
}

func (f fixture) set(t *testing.T, actorID string, key attribute.Key, value int) {
	t.Helper()
	if err := f.store.SetInt(context.Background(), actorID, string(key), value); err != nil {
		t.Fatalf("set %s: %v", key, err)
	}
}

func (f fixture) get(t *testing.T, actorID string, key attribute.Key) int {
	t.Helper()
	v, _, err := f.store.GetInt(context.Background(), actorID, string(key))
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	return v
}

func (f fixture) bindGM(t *testing.T, id string, fear int) {
	t.Helper()
	ctx := context.Background()
	if err := f.store.UpsertActor(ctx, storage.Actor{ID: id, Name: "Keeper", GroupID: "g1"}); err != nil {
		t.Fatalf("upsert gm: %v", err)
	}
	if err := f.store.SetGroupValue(ctx, "g1", sheet.GMKey, id); err != nil {
		t.Fatalf("bind gm: %v", err)
	}
	f.set(t, id, attribute.Fear, fear)
}

func check(mods ...modifier.Modifier) modifier.Command {
	return modifier.Command{Modifiers: mods}
}

func intPtr(v int) *int { return &v }

func TestResolveHopeResult(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.set(t, "u1", attribute.Agility, 2)
	f.set(t, "u1", attribute.Hope, 2)

	res, err := f.engine.Resolve(context.Background(), Request{
		Sheet: f.roller,
		Command: check(
			modifier.Modifier{Kind: modifier.KindAttribute, Name: "agility", Sign: 1},
			modifier.Modifier{Kind: modifier.KindConstant, Value: 3},
		),
		UpdateAttributes: true,
		Preset:           &Preset{Hope: 8, Fear: 3},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Type != dice.ResultHope || res.BaseTotal != 11 || res.ModifierTotal != 5 || res.Total != 16 {
		t.Fatalf("result = %+v", res)
	}
	if res.RollID == "" {
		t.Fatal("roll id is empty")
	}
	if res.Outcome != dice.OutcomeRollWithHope {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if len(res.Details) != 2 || res.Details[0].Kind != modifier.KindAttribute || res.Details[0].Raw != 2 {
		t.Fatalf("details = %+v", res.Details)
	}
	hu := res.HopeUpdate
	if hu.Original != 2 || hu.Final != 3 || !hu.Written || hu.Calculation != "2+1(hope result)" {
		t.Fatalf("hope update = %+v", hu)
	}
	if got := f.get(t, "u1", attribute.Hope); got != 3 {
		t.Fatalf("stored hope = %d, want 3", got)
	}
	if text, _, _ := f.store.GetString(context.Background(), "u1", storage.CardKey); text == "" {
		t.Fatal("card was not refreshed")
	}
	if res.FearUpdate != nil || res.Stress != nil {
		t.Fatalf("unexpected side effects: %+v %+v", res.FearUpdate, res.Stress)
	}
}

func TestResolveCriticalSuccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		stress      int
		hope        int
		wantStress  int
		wantUpdated bool
		wantHope    int
	}{
		{name: "relieves stress", stress: 2, hope: 3, wantStress: 1, wantUpdated: true, wantHope: 4},
		{name: "stress already zero", stress: 0, hope: 6, wantStress: 0, wantUpdated: false, wantHope: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.set(t, "u1", attribute.Stress, tt.stress)
			f.set(t, "u1", attribute.Hope, tt.hope)

			res, err := f.engine.Resolve(context.Background(), Request{
				Sheet:            f.roller,
				UpdateAttributes: true,
				Preset:           &Preset{Hope: 5, Fear: 5},
			})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.Type != dice.ResultCritical || res.Outcome != dice.OutcomeCriticalSuccess {
				t.Fatalf("type = %v outcome = %v", res.Type, res.Outcome)
			}
			if res.Stress == nil || res.Stress.Current != tt.wantStress || res.Stress.Updated != tt.wantUpdated || res.Stress.Max != 6 {
				t.Fatalf("stress = %+v", res.Stress)
			}
			if got := f.get(t, "u1", attribute.Stress); got != tt.wantStress {
				t.Fatalf("stored stress = %d, want %d", got, tt.wantStress)
			}
			if res.HopeUpdate.Final != tt.wantHope || !res.HopeUpdate.Written {
				t.Fatalf("hope update = %+v", res.HopeUpdate)
			}
			if got := res.HopeUpdate.Components[0].Label; got != LabelCriticalSuccess {
				t.Fatalf("label = %q", got)
			}
		})
	}
}

func TestResolveFearRaisesGMFear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		fear        int
		wantCurrent int
		wantUpdated bool
	}{
		{name: "below cap", fear: 3, wantCurrent: 4, wantUpdated: true},
		{name: "at cap", fear: 12, wantCurrent: 12, wantUpdated: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.bindGM(t, "gm1", tt.fear)

			res, err := f.engine.Resolve(context.Background(), Request{
				Sheet:            f.roller,
				UpdateAttributes: true,
				Preset:           &Preset{Hope: 2, Fear: 9},
			})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.Type != dice.ResultFear {
				t.Fatalf("type = %v", res.Type)
			}
			fu := res.FearUpdate
			if fu == nil || fu.GMID != "gm1" || fu.Current != tt.wantCurrent || fu.Updated != tt.wantUpdated || fu.Max != 12 {
				t.Fatalf("fear update = %+v", fu)
			}
			if got := f.get(t, "gm1", attribute.Fear); got != tt.wantCurrent {
				t.Fatalf("stored fear = %d, want %d", got, tt.wantCurrent)
			}
			if res.HopeUpdate.HasChange() || res.HopeUpdate.Written {
				t.Fatalf("hope update = %+v", res.HopeUpdate)
			}
		})
	}
}

func TestResolveFearWithoutGM(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res, err := f.engine.Resolve(context.Background(), Request{
		Sheet:            f.roller,
		UpdateAttributes: true,
		Preset:           &Preset{Hope: 1, Fear: 12},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.FearUpdate != nil {
		t.Fatalf("fear update = %+v, want nil", res.FearUpdate)
	}
}

func TestResolveReactionSkipsOutcomeEffects(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.bindGM(t, "gm1", 2)
	f.set(t, "u1", attribute.Hope, 2)
	f.set(t, "u1", attribute.Stress, 3)

	for _, preset := range []Preset{{Hope: 9, Fear: 2}, {Hope: 4, Fear: 4}, {Hope: 1, Fear: 7}} {
		res, err := f.engine.Resolve(context.Background(), Request{Sheet: f.roller, Preset: &preset})
		if err != nil {
			t.Fatalf("Resolve(%+v) error = %v", preset, err)
		}
		if res.Stress != nil || res.FearUpdate != nil || res.HopeUpdate.Written {
			t.Fatalf("Resolve(%+v) applied side effects: %+v", preset, res)
		}
	}
	if got := f.get(t, "u1", attribute.Hope); got != 2 {
		t.Fatalf("hope = %d, want 2", got)
	}
	if got := f.get(t, "u1", attribute.Stress); got != 3 {
		t.Fatalf("stress = %d, want 3", got)
	}
	if got := f.get(t, "gm1", attribute.Fear); got != 2 {
		t.Fatalf("gm fear = %d, want 2", got)
	}
}

func TestResolveReactionStillChargesExperience(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.set(t, "u1", attribute.Hope, 2)
	f.set(t, "u1", "climbing", 3)

	res, err := f.engine.Resolve(context.Background(), Request{
		Sheet:   f.roller,
		Command: check(modifier.Modifier{Kind: modifier.KindExperience, Name: "climbing", Sign: 1}),
		Preset:  &Preset{Hope: 9, Fear: 2},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.ModifierTotal != 3 || res.HopeUpdate.Final != 1 || !res.HopeUpdate.Written {
		t.Fatalf("result = %+v", res)
	}
	if got := f.get(t, "u1", attribute.Hope); got != 1 {
		t.Fatalf("hope = %d, want 1", got)
	}
}

func TestResolveExperienceHopeCheck(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.set(t, "u1", attribute.Hope, 1)
	f.set(t, "u1", "climbing", 3)
	f.set(t, "u1", "stealth", 2)

	res, err := f.engine.Resolve(context.Background(), Request{
		Sheet: f.roller,
		Command: check(
			modifier.Modifier{Kind: modifier.KindAnonymousExperience, Value: -4},
			modifier.Modifier{Kind: modifier.KindExperience, Name: "climbing", Sign: 1},
			modifier.Modifier{Kind: modifier.KindExperience, Name: "stealth", Sign: -1},
		),
		Preset: &Preset{Hope: 3, Fear: 8},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []Detail{
		{Kind: modifier.KindExperience, Name: "climbing", Sign: 1, Raw: 3, Value: 3},
		{Kind: modifier.KindExperience, Name: "stealth", Sign: -1, Insufficient: true},
		{Kind: modifier.KindAnonymousExperience, Sign: -1, Raw: 4, Insufficient: true},
	}
	if !reflect.DeepEqual(res.Details, want) {
		t.Fatalf("details = %+v\nwant %+v", res.Details, want)
	}
	if res.ModifierTotal != 3 {
		t.Fatalf("modifier total = %d, want 3", res.ModifierTotal)
	}
	if res.HopeUpdate.Calculation != "1-1(climbing)" || res.HopeUpdate.Final != 0 {
		t.Fatalf("hope update = %+v", res.HopeUpdate)
	}
}

func TestResolveAnonymousExperience(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.set(t, "u1", attribute.Hope, 3)

	res, err := f.engine.Resolve(context.Background(), Request{
		Sheet: f.roller,
		Command: check(
			modifier.Modifier{Kind: modifier.KindAnonymousExperience, Value: 2},
			modifier.Modifier{Kind: modifier.KindAnonymousExperience, Value: 3},
		),
		UpdateAttributes: true,
		Preset:           &Preset{Hope: 10, Fear: 2},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.ModifierTotal != 5 {
		t.Fatalf("modifier total = %d, want 5", res.ModifierTotal)
	}
	if got := res.HopeUpdate.Calculation; got != "3-1(experience)-1(experience)+1(hope result)" {
		t.Fatalf("calculation = %q", got)
	}
	if res.HopeUpdate.Final != 2 || res.HopeUpdate.NetChange != -1 {
		t.Fatalf("hope update = %+v", res.HopeUpdate)
	}
}

func TestResolveAdvantageDice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		rolls     []int
		mods      []modifier.Modifier
		wantKind  modifier.Kind
		wantRolls []int
		wantValue int
	}{
		{
			name:      "advantage keeps highest",
			rolls:     []int{8, 3, 2, 6, 4},
			mods:      []modifier.Modifier{{Kind: modifier.KindAdvantage, Count: 3}},
			wantKind:  modifier.KindAdvantage,
			wantRolls: []int{2, 6, 4},
			wantValue: 6,
		},
		{
			name:  "disadvantage subtracts lowest",
			rolls: []int{8, 3, 5, 2},
			mods: []modifier.Modifier{
				{Kind: modifier.KindDisadvantage, Count: 3},
				{Kind: modifier.KindAdvantage, Count: 1},
			},
			wantKind:  modifier.KindDisadvantage,
			wantRolls: []int{5, 2},
			wantValue: -2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.rolls...)
			res, err := f.engine.Resolve(context.Background(), Request{Sheet: f.roller, Command: check(tt.mods...)})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if len(res.Details) != 1 {
				t.Fatalf("details = %+v", res.Details)
			}
			d := res.Details[0]
			if d.Kind != tt.wantKind || d.Count != len(tt.wantRolls) || d.Sides != 6 || d.Value != tt.wantValue {
				t.Fatalf("detail = %+v", d)
			}
			if !reflect.DeepEqual(d.Rolls, tt.wantRolls) {
				t.Fatalf("rolls = %v, want %v", d.Rolls, tt.wantRolls)
			}
		})
	}
}

func TestResolveAdvantageCancels(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 8, 3)
	res, err := f.engine.Resolve(context.Background(), Request{
		Sheet: f.roller,
		Command: check(
			modifier.Modifier{Kind: modifier.KindAdvantage, Count: 2},
			modifier.Modifier{Kind: modifier.KindDisadvantage, Count: 2},
		),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Details) != 0 || res.ModifierTotal != 0 {
		t.Fatalf("details = %+v", res.Details)
	}
}

func TestResolveExtraDice(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 8, 3, 3, 4)
	res, err := f.engine.Resolve(context.Background(), Request{
		Sheet:   f.roller,
		Command: check(modifier.Modifier{Kind: modifier.KindExtraDice, Count: 2, Sides: 6, Sign: -1}),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	d := res.Details[0]
	if d.Value != -7 || !reflect.DeepEqual(d.Rolls, []int{3, 4}) {
		t.Fatalf("detail = %+v", d)
	}
	if res.Total != 4 {
		t.Fatalf("total = %d, want 4", res.Total)
	}
}

func TestResolveModifierOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 6, 2, 5, 1)
	f.set(t, "u1", attribute.Hope, 1)
	res, err := f.engine.Resolve(context.Background(), Request{
		Sheet: f.roller,
		Command: check(
			modifier.Modifier{Kind: modifier.KindConstant, Value: 1},
			modifier.Modifier{Kind: modifier.KindAttribute, Name: "strength", Sign: 1},
			modifier.Modifier{Kind: modifier.KindAnonymousExperience, Value: 2},
			modifier.Modifier{Kind: modifier.KindExtraDice, Count: 1, Sides: 4, Sign: 1},
			modifier.Modifier{Kind: modifier.KindAdvantage, Count: 1},
		),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	var got []modifier.Kind
	for _, d := range res.Details {
		got = append(got, d.Kind)
	}
	want := []modifier.Kind{
		modifier.KindAdvantage,
		modifier.KindExtraDice,
		modifier.KindAnonymousExperience,
		modifier.KindAttribute,
		modifier.KindConstant,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestResolveHelpGrantsAdvantage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 7, 2, 3, 5)
	ctx := context.Background()
	if err := f.store.UpsertActor(ctx, storage.Actor{ID: "u2", Name: "Bree", GroupID: "g1"}); err != nil {
		t.Fatalf("upsert helper: %v", err)
	}
	f.set(t, "u2", attribute.Hope, 2)

	res, err := f.engine.Resolve(ctx, Request{Sheet: f.roller, Mentions: []string{"u2", "u1"}, UpdateAttributes: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.Help.SelfHelp || res.Help.Succeeded() != 1 {
		t.Fatalf("help = %+v", res.Help)
	}
	d := res.Details[0]
	if d.Kind != modifier.KindAdvantage || d.Count != 1 || d.HelpCount != 1 || d.Value != 3 {
		t.Fatalf("detail = %+v", d)
	}
	if got := f.get(t, "u2", attribute.Hope); got != 1 {
		t.Fatalf("helper hope = %d, want 1", got)
	}
}

func TestResolveCustomSidesAndDifficulty(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 18, 4)
	cmd := modifier.Command{
		DiceSides:  &modifier.DiceSides{Hope: 20, Fear: 20},
		Difficulty: intPtr(25),
		Reason:     "leap the chasm",
	}
	res, err := f.engine.Resolve(context.Background(), Request{Sheet: f.roller, Command: cmd})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.CustomSides || res.HopeSides != 20 || res.Hope != 18 {
		t.Fatalf("result = %+v", res)
	}
	if res.MeetsDifficulty || res.Outcome != dice.OutcomeFailureWithHope || res.Reason != "leap the chasm" {
		t.Fatalf("outcome = %v meets = %v", res.Outcome, res.MeetsDifficulty)
	}
}

func TestResolveSidesDirectiveUsesConfiguredBase(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.BaseDiceSides = 20
	f.engine = New(cfg, dice.NewSequence(17, 7), gm.NewRegistry(f.store))

	ctx := context.Background()
	cmd, err := modifier.ParseArgs(ctx, []string{"/8"}, f.roller)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	res, err := f.engine.Resolve(ctx, Request{Sheet: f.roller, Command: cmd})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.HopeSides != 20 || res.FearSides != 8 || !res.CustomSides {
		t.Fatalf("sides = d%d/d%d custom = %v, want d20/d8 custom", res.HopeSides, res.FearSides, res.CustomSides)
	}
	if res.Hope != 17 || res.Fear != 7 {
		t.Fatalf("dice = %d/%d, want 17/7", res.Hope, res.Fear)
	}
}

func TestResolveRejectsPresetOutOfRange(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.UpsertActor(ctx, storage.Actor{ID: "u2", Name: "Bree", GroupID: "g1"}); err != nil {
		t.Fatalf("upsert helper: %v", err)
	}
	f.set(t, "u2", attribute.Hope, 2)

	_, err := f.engine.Resolve(ctx, Request{Sheet: f.roller, Mentions: []string{"u2"}, Preset: &Preset{Hope: 13, Fear: 1}})
	if got := apperrors.CodeOf(err); got != apperrors.CodeDualityInvalidDie {
		t.Fatalf("error code = %v (%v)", got, err)
	}
	if got := f.get(t, "u2", attribute.Hope); got != 2 {
		t.Fatalf("helper was charged: hope = %d", got)
	}
}

type failingStore struct {
	*memory.Store
}

var errDiskFull = errors.New("disk full")

func (failingStore) SetInt(context.Context, string, string, int) error { return errDiskFull }

func TestResolveStoreFailure(t *testing.T) {
	t.Parallel()

	store := failingStore{Store: memory.New()}
	s := sheet.New(store, storage.Actor{ID: "u1", GroupID: "g1"})
	eng := New(DefaultConfig(), dice.NewSequence(9, 2), gm.NewRegistry(store))

	_, err := eng.Resolve(context.Background(), Request{Sheet: s, UpdateAttributes: true})
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("Resolve() error = %v, want disk full", err)
	}
	if got := apperrors.CodeOf(err); got != apperrors.CodeStoreUnavailable {
		t.Fatalf("error code = %v", got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DUALITY_MAX_FEAR", "10")
	t.Setenv("DUALITY_HELP_MAX_HELPERS", "2")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MaxFear != 10 || cfg.Help.MaxHelpers != 2 || cfg.BaseDiceSides != 12 || !cfg.Help.Enabled {
		t.Fatalf("config = %+v", cfg)
	}
}
