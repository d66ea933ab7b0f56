// Package modifier tokenizes and classifies the arguments of a duality roll.
//
// A roll line such as `2/20 +agi+2 -dis exp3 climb the wall` is turned into
// typed modifiers, an optional dice-size override, an optional difficulty
// and a free-text reason. Classification never fails loudly: anything that
// is not part of the fixed vocabulary marks the start of the reason.
package modifier

import "fmt"

// Kind identifies a modifier variant.
type Kind int

const (
	KindUnknown Kind = iota
	KindAttribute
	KindExperience
	KindAnonymousExperience
	KindAdvantage
	KindDisadvantage
	KindExtraDice
	KindConstant
)

func (k Kind) String() string {
	switch k {
	case KindAttribute:
		return "attribute"
	case KindExperience:
		return "experience"
	case KindAnonymousExperience:
		return "anonymous_experience"
	case KindAdvantage:
		return "advantage"
	case KindDisadvantage:
		return "disadvantage"
	case KindExtraDice:
		return "extra_dice"
	case KindConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Limits applied while parsing. Out of range values saturate.
const (
	DefaultAnonymousExperience = 2
	MaxAnonymousExperience     = 10
	DefaultAdvantage           = 1
	MaxAdvantage               = 10
	MinDiceCount               = 1
	MaxDiceCount               = 10
	MinDiceSides               = 2
	MaxDiceSides               = 100
	MinConstant                = -999
	MaxConstant                = 999
	MaxDifficulty              = 999
)

// Modifier is one parsed roll modifier.
//
// Field use depends on Kind:
//   - attribute, experience: Name and Sign.
//   - anonymous experience, constant: Value, already signed.
//   - advantage, disadvantage: Count, already signed.
//   - extra dice: Count, Sides and Sign.
type Modifier struct {
	Kind  Kind
	Name  string
	Sign  int
	Value int
	Count int
	Sides int
	// FromHelp marks advantage granted by helpers rather than typed by the roller.
	FromHelp bool
}

func (m Modifier) String() string {
	switch m.Kind {
	case KindAttribute, KindExperience:
		return signChar(m.Sign) + m.Name
	case KindAnonymousExperience, KindConstant:
		return fmt.Sprintf("%+d", m.Value)
	case KindAdvantage:
		return fmt.Sprintf("adv%d", m.Count)
	case KindDisadvantage:
		return fmt.Sprintf("dis%d", m.Count)
	case KindExtraDice:
		return fmt.Sprintf("%s%dd%d", signChar(m.Sign), m.Count, m.Sides)
	default:
		return "?"
	}
}

func signChar(sign int) string {
	if sign < 0 {
		return "-"
	}
	return "+"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
