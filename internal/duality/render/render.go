// Package render turns resolved checks into localized chat replies.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/dualitydice/internal/core/dice"
	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/engine"
	"github.com/louisbranch/dualitydice/internal/duality/ledger"
	"github.com/louisbranch/dualitydice/internal/duality/modifier"
	"github.com/louisbranch/dualitydice/internal/platform/i18n/catalog"
	"golang.org/x/text/message"
)

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Variants lists the numbered keys of a flavor text list.
type Variants interface {
	Variants(locale string, prefix string) []string
}

// Renderer renders replies for one locale.
type Renderer struct {
	loc      Localizer
	locale   string
	variants Variants
	roller   dice.Roller
}

// New returns a renderer. roller picks flavor text; nil always picks the
// first entry.
func New(loc Localizer, locale string, variants Variants, roller dice.Roller) *Renderer {
	return &Renderer{loc: loc, locale: locale, variants: variants, roller: roller}
}

// ForLocale returns a renderer backed by the embedded catalogs for the
// supported locale closest to raw.
func ForLocale(raw string, roller dice.Roller) *Renderer {
	bundle := catalog.Default()
	locale := bundle.Resolve(raw)
	return New(bundle.Printer(locale), locale, bundle, roller)
}

// Locale returns the resolved locale.
func (r *Renderer) Locale() string { return r.locale }

// Text localizes key with args.
func (r *Renderer) Text(key string, args ...any) string {
	return localize(r.loc, key, args...)
}

// Title renders the check title, with the reason when present.
func (r *Renderer) Title(actor, reason string) string {
	if strings.TrimSpace(reason) == "" {
		return r.Text("duality.title", actor)
	}
	return r.Text("duality.title.reason", actor, reason)
}

// AttributeLabel returns the localized label of key, falling back to the
// vocabulary label.
func (r *Renderer) AttributeLabel(key attribute.Key) string {
	return localizeWithFallback(r.loc, "attribute."+string(key), attribute.Label(key))
}

// Check renders a resolved check under title.
func (r *Renderer) Check(title string, res engine.Result) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('\n')

	parts := []string{r.diceLine(res)}
	if len(res.Details) > 0 {
		parts = append(parts, r.Text("duality.modifiers", r.Trail(res.Details)))
	}
	parts = append(parts, r.totalLine(res))
	if res.Difficulty != nil {
		key := "duality.difficulty.missed"
		if res.MeetsDifficulty {
			key = "duality.difficulty.met"
		}
		parts = append(parts, r.Text(key, *res.Difficulty))
	}
	b.WriteString(strings.Join(parts, "  "))

	if fu := res.FearUpdate; fu != nil {
		b.WriteByte('\n')
		if fu.Updated {
			b.WriteString(r.Text("duality.fear.updated", fu.Current, fu.Current, fu.Max, fu.Current-1))
		} else {
			b.WriteString(r.Text("duality.fear.capped", fu.Current, fu.Current, fu.Max, fu.Current))
		}
	}

	hu := res.HopeUpdate
	b.WriteByte('\n')
	if hu.HasChange() {
		b.WriteString(r.Text("duality.hope.changed", hu.Final, hu.Final, hu.Capacity, r.Calculation(hu)))
	} else {
		b.WriteString(r.Text("duality.hope.unchanged", hu.Original, hu.Original, hu.Capacity))
	}

	for _, line := range r.helpLines(res) {
		b.WriteString("\n• ")
		b.WriteString(line)
	}

	if flavor := r.pick(outcomeFlavor(res.Type)); flavor != "" {
		b.WriteByte('\n')
		b.WriteString(flavor)
	}
	if prefix := netFlavor(res.Type, hu.NetChange); prefix != "" {
		if flavor := r.pick(prefix); flavor != "" {
			b.WriteByte('\n')
			b.WriteString(flavor)
		}
	}

	if s := res.Stress; s != nil && res.Type == dice.ResultCritical {
		b.WriteByte('\n')
		if s.Updated {
			b.WriteString(r.Text("duality.stress.relieved", s.Current, s.Max))
		} else {
			b.WriteString(r.Text("duality.stress.floor", s.Current, s.Max))
		}
	}
	return b.String()
}

func (r *Renderer) diceLine(res engine.Result) string {
	if res.CustomSides {
		return r.Text("duality.dice.custom", res.HopeSides, res.Hope, res.FearSides, res.Fear)
	}
	return r.Text("duality.dice", res.Hope, res.Fear)
}

func (r *Renderer) totalLine(res engine.Result) string {
	switch res.Type {
	case dice.ResultCritical:
		return r.Text("duality.total.critical")
	case dice.ResultHope:
		return r.Text("duality.total.hope", res.Total)
	default:
		return r.Text("duality.total.fear", res.Total)
	}
}

// Trail renders the modifier details joined by ", ".
func (r *Renderer) Trail(details []engine.Detail) string {
	out := make([]string, 0, len(details))
	for _, d := range details {
		out = append(out, r.detail(d))
	}
	return strings.Join(out, ", ")
}

func (r *Renderer) detail(d engine.Detail) string {
	switch d.Kind {
	case modifier.KindAdvantage, modifier.KindDisadvantage:
		key := "duality.detail.advantage"
		if d.Kind == modifier.KindDisadvantage {
			key = "duality.detail.disadvantage"
		}
		text := fmt.Sprintf("%s%dd%d[%s]=%d", r.Text(key), d.Count, d.Sides, joinInts(d.Rolls), d.Value)
		if d.HelpCount > 0 {
			text += r.Text("duality.detail.help", d.HelpCount)
		}
		return text
	case modifier.KindExtraDice:
		return fmt.Sprintf("%s%dd%d[%s]=%+d", signChar(d.Sign), d.Count, d.Sides, joinInts(d.Rolls), d.Value)
	case modifier.KindExperience, modifier.KindAnonymousExperience:
		name := d.Name
		if d.Kind == modifier.KindAnonymousExperience {
			name = r.label(engine.LabelExperience)
		}
		if d.Insufficient {
			return fmt.Sprintf("~%s[%s]", name, r.Text("duality.detail.insufficient"))
		}
		return fmt.Sprintf("%s%s[%d]", signChar(d.Sign), name, d.Raw)
	case modifier.KindAttribute:
		return fmt.Sprintf("%s%s[%d]", signChar(d.Sign), r.AttributeLabel(attribute.Key(d.Name)), d.Raw)
	default:
		return fmt.Sprintf("%+d", d.Value)
	}
}

// Calculation renders the Hope ledger with localized labels.
func (r *Renderer) Calculation(hu engine.HopeUpdate) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(hu.Original))
	for _, c := range hu.Components {
		if c.Kind == ledger.Gain {
			b.WriteByte('+')
		} else {
			b.WriteByte('-')
		}
		b.WriteString(strconv.Itoa(c.Amount))
		b.WriteByte('(')
		b.WriteString(r.label(c.Label))
		b.WriteByte(')')
	}
	return b.String()
}

func (r *Renderer) label(raw string) string {
	switch raw {
	case engine.LabelHopeResult:
		return localizeWithFallback(r.loc, "duality.label.hope_result", raw)
	case engine.LabelCriticalSuccess:
		return localizeWithFallback(r.loc, "duality.label.critical_success", raw)
	case engine.LabelExperience:
		return localizeWithFallback(r.loc, "duality.label.experience", raw)
	default:
		return raw
	}
}

// helpLines lists successful helpers, then helpers without enough Hope,
// then the self-help notice.
func (r *Renderer) helpLines(res engine.Result) []string {
	var lines []string
	for _, h := range res.Help.Helpers {
		if h.Success {
			lines = append(lines, r.Text("duality.help.provided", h.Name, h.Old, h.New))
		}
	}
	for _, h := range res.Help.Helpers {
		if !h.Success {
			lines = append(lines, r.Text("duality.help.insufficient", h.Name))
		}
	}
	if res.Help.SelfHelp {
		lines = append(lines, r.Text("duality.help.self"))
	}
	return lines
}

func outcomeFlavor(t dice.ResultType) string {
	switch t {
	case dice.ResultCritical:
		return "duality.flavor.critical"
	case dice.ResultHope:
		return "duality.flavor.hope"
	default:
		return "duality.flavor.fear"
	}
}

// netFlavor picks the Hope net-change list. Criticals have none.
func netFlavor(t dice.ResultType, net int) string {
	base := "duality.flavor.hope_net"
	switch t {
	case dice.ResultCritical:
		return ""
	case dice.ResultFear:
		base = "duality.flavor.fear_net"
	}
	switch {
	case net > 0:
		return base + ".increase"
	case net < 0:
		return base + ".decrease"
	default:
		return base + ".unchanged"
	}
}

func (r *Renderer) pick(prefix string) string {
	if r.variants == nil {
		return ""
	}
	keys := r.variants.Variants(r.locale, prefix)
	if len(keys) == 0 {
		return ""
	}
	idx := 0
	if r.roller != nil {
		idx = r.roller.Roll(len(keys)) - 1
	}
	if idx < 0 || idx >= len(keys) {
		idx = 0
	}
	return r.Text(keys[idx])
}

func localize(loc Localizer, key message.Reference, args ...any) string {
	if loc == nil {
		if asString, ok := key.(string); ok {
			return asString
		}
		return ""
	}
	return loc.Sprintf(key, args...)
}

func localizeWithFallback(loc Localizer, key string, fallback string) string {
	value := strings.TrimSpace(localize(loc, key))
	if value == "" || value == key {
		return fallback
	}
	return value
}

func joinInts(values []int) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return strings.Join(out, ",")
}

func signChar(sign int) string {
	if sign < 0 {
		return "-"
	}
	return "+"
}
