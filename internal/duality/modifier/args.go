package modifier

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var (
	sidesDirectiveRe = regexp.MustCompile(`^(\d*)/?(\d*)$`)
	difficultyRe     = regexp.MustCompile(`^\[(\d+)\]$`)
)

// DiceSides overrides the Hope and Fear die sizes for one roll. A zero side
// was left out of the directive and takes the configured base size.
type DiceSides struct {
	Hope int
	Fear int
}

// Command is a fully parsed roll argument list.
type Command struct {
	Modifiers []Modifier
	// Reason is the argument tail from the first rejected token, joined with
	// single spaces. It may be empty.
	Reason     string
	DiceSides  *DiceSides
	Difficulty *int
}

// Split breaks a compound token at every '+' or '-' after index 0.
// `+5+4d6-adv` becomes `+5`, `+4d6`, `-adv`.
func Split(token string) []string {
	var (
		parts   []string
		current strings.Builder
	)
	for i, r := range token {
		if (r == '+' || r == '-') && i > 0 {
			if current.Len() > 0 {
				parts = append(parts, current.String())
			}
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// ParseArgs parses a roll argument list.
//
// An optional leading `n/m` token overrides the die sizes when both resolve
// to [MinDiceSides, MaxDiceSides]; a missing side is left zero. Each later
// token must classify entirely (every piece of a compound token) or it and
// everything after it becomes the reason. A `[N]` token sets the difficulty.
func ParseArgs(ctx context.Context, args []string, lookup Lookup) (Command, error) {
	var cmd Command
	start := 0
	if len(args) > 0 {
		if sides, ok := parseSidesDirective(args[0]); ok {
			cmd.DiceSides = &sides
			start = 1
		}
	}

	reasonStart := len(args)
	for i := start; i < len(args); i++ {
		arg := args[i]

		if m := difficultyRe.FindStringSubmatch(arg); m != nil {
			dc := clamp(atoiSaturating(m[1]), 0, MaxDifficulty)
			cmd.Difficulty = &dc
			continue
		}

		pieces := []string{arg}
		switch {
		case strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-"):
			pieces = Split(arg)
		case strings.ContainsAny(arg, "+-"):
			pieces = Split("+" + arg)
		}

		parsed, ok, err := parseAll(ctx, pieces, lookup)
		if err != nil {
			return Command{}, err
		}
		if !ok {
			reasonStart = i
			break
		}
		cmd.Modifiers = append(cmd.Modifiers, parsed...)
	}

	cmd.Reason = strings.Join(args[reasonStart:], " ")
	return cmd, nil
}

func parseAll(ctx context.Context, pieces []string, lookup Lookup) ([]Modifier, bool, error) {
	if len(pieces) == 0 {
		return nil, false, nil
	}
	out := make([]Modifier, 0, len(pieces))
	for _, piece := range pieces {
		m, ok, err := Parse(ctx, piece, lookup)
		if err != nil || !ok {
			return nil, false, err
		}
		out = append(out, m)
	}
	return out, true, nil
}

func parseSidesDirective(token string) (DiceSides, bool) {
	if !strings.Contains(token, "/") {
		return DiceSides{}, false
	}
	m := sidesDirectiveRe.FindStringSubmatch(token)
	if m == nil || (m[1] == "" && m[2] == "") {
		return DiceSides{}, false
	}
	var sides DiceSides
	if m[1] != "" {
		sides.Hope = atoiSaturating(m[1])
		if !inSides(sides.Hope) {
			return DiceSides{}, false
		}
	}
	if m[2] != "" {
		sides.Fear = atoiSaturating(m[2])
		if !inSides(sides.Fear) {
			return DiceSides{}, false
		}
	}
	return sides, true
}

func inSides(v int) bool {
	return v >= MinDiceSides && v <= MaxDiceSides
}

// NetAdvantage sums advantage counts minus disadvantage counts.
func NetAdvantage(mods []Modifier) int {
	net := 0
	for _, m := range mods {
		switch m.Kind {
		case KindAdvantage:
			net += m.Count
		case KindDisadvantage:
			net -= m.Count
		}
	}
	return net
}

// String renders the directive back to its `n/m` form, leaving zero sides
// out.
func (s DiceSides) String() string {
	return sideString(s.Hope) + "/" + sideString(s.Fear)
}

func sideString(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
