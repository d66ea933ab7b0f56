package modifier

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/louisbranch/dualitydice/internal/duality/attribute"
)

var (
	AdvantageKeywords           = []string{"优势", "adv", "advantage"}
	DisadvantageKeywords        = []string{"劣势", "dis", "disadvantage"}
	AnonymousExperienceKeywords = []string{"经历", "exp", "experience"}

	diceRe     = regexp.MustCompile(`^(\d*)d(\d+)$`)
	constantRe = regexp.MustCompile(`^\d+$`)
	optDigits  = regexp.MustCompile(`^\d*$`)
	reqDigits  = regexp.MustCompile(`^\d+$`)
)

// Lookup reports whether an actor-defined experience exists.
// Implementations receive the lowercased token content.
type Lookup interface {
	HasExperience(ctx context.Context, name string) (bool, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, name string) (bool, error)

// HasExperience calls f.
func (f LookupFunc) HasExperience(ctx context.Context, name string) (bool, error) {
	return f(ctx, name)
}

// Valid reports whether token classifies as a modifier. It is defined as
// Parse succeeding, so the two never disagree.
func Valid(ctx context.Context, token string, lookup Lookup) (bool, error) {
	_, ok, err := Parse(ctx, token, lookup)
	return ok, err
}

// Parse classifies a single token with an optional leading sign.
// It returns ok=false for tokens outside the vocabulary; err is only set
// when the experience lookup fails.
func Parse(ctx context.Context, token string, lookup Lookup) (Modifier, bool, error) {
	sign := 1
	content := token
	if strings.HasPrefix(token, "+") || strings.HasPrefix(token, "-") {
		if token[0] == '-' {
			sign = -1
		}
		content = token[1:]
	}
	content = strings.ToLower(strings.TrimSpace(content))
	if content == "" {
		return Modifier{}, false, nil
	}

	if key, ok := attribute.Checkable(content); ok {
		return Modifier{Kind: KindAttribute, Name: string(key), Sign: sign}, true, nil
	}

	if lookup != nil {
		exists, err := lookup.HasExperience(ctx, content)
		if err != nil {
			return Modifier{}, false, err
		}
		if exists {
			return Modifier{Kind: KindExperience, Name: content, Sign: sign}, true, nil
		}
	}

	if n, ok := matchKeyword(content, AnonymousExperienceKeywords, DefaultAnonymousExperience); ok {
		return Modifier{
			Kind:  KindAnonymousExperience,
			Sign:  sign,
			Value: clamp(n*sign, -MaxAnonymousExperience, MaxAnonymousExperience),
		}, true, nil
	}

	if n, ok := matchKeyword(content, AdvantageKeywords, DefaultAdvantage); ok {
		return Modifier{Kind: KindAdvantage, Sign: sign, Count: clamp(n*sign, -MaxAdvantage, MaxAdvantage)}, true, nil
	}

	if n, ok := matchKeyword(content, DisadvantageKeywords, DefaultAdvantage); ok {
		return Modifier{Kind: KindDisadvantage, Sign: sign, Count: clamp(n*sign, -MaxAdvantage, MaxAdvantage)}, true, nil
	}

	if m := diceRe.FindStringSubmatch(content); m != nil {
		count := 1
		if m[1] != "" {
			count = atoiSaturating(m[1])
		}
		return Modifier{
			Kind:  KindExtraDice,
			Sign:  sign,
			Count: clamp(count, MinDiceCount, MaxDiceCount),
			Sides: clamp(atoiSaturating(m[2]), MinDiceSides, MaxDiceSides),
		}, true, nil
	}

	if constantRe.MatchString(content) {
		return Modifier{
			Kind:  KindConstant,
			Sign:  sign,
			Value: clamp(atoiSaturating(content)*sign, MinConstant, MaxConstant),
		}, true, nil
	}

	return Modifier{}, false, nil
}

// matchKeyword accepts a keyword alone, followed by optional digits, or
// preceded by digits. A bare keyword or empty suffix yields def.
func matchKeyword(content string, keywords []string, def int) (int, bool) {
	for _, kw := range keywords {
		if content == kw {
			return def, true
		}
		if rest, ok := strings.CutPrefix(content, kw); ok && optDigits.MatchString(rest) {
			if rest == "" {
				return def, true
			}
			return atoiSaturating(rest), true
		}
		if head, ok := strings.CutSuffix(content, kw); ok && reqDigits.MatchString(head) {
			return atoiSaturating(head), true
		}
	}
	return 0, false
}

// atoiSaturating parses a digit string, saturating instead of overflowing.
func atoiSaturating(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 1 << 30
	}
	return n
}
