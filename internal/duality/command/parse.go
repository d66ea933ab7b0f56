package command

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Prefixes start a command line. The full-width stop is what Chinese input
// methods type for '.'.
var Prefixes = []string{".", "/", "。"}

// Line is one parsed chat command line.
type Line struct {
	Name string
	Args []string
	// Mentions are the actor ids of `@id` and `<@id>` tokens, in order.
	Mentions []string
}

// ParseLine parses text as a command line. It reports false when text does
// not start with a command prefix, when the prefix is followed by space, or
// when it carries no command name.
//
// The name is the leading run of letters after the prefix, so `.dd+agi`
// parses as `dd` with argument `+agi`.
func ParseLine(text string) (Line, bool) {
	text = strings.TrimSpace(text)
	rest, ok := trimPrefix(text)
	if !ok || rest == "" {
		return Line{}, false
	}
	if first, _ := utf8.DecodeRuneInString(rest); unicode.IsSpace(first) {
		return Line{}, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Line{}, false
	}

	head := fields[0]
	end := strings.IndexFunc(head, func(r rune) bool { return !isNameRune(r) })
	if end == 0 {
		return Line{}, false
	}
	var line Line
	if end < 0 {
		line.Name = strings.ToLower(head)
		fields = fields[1:]
	} else {
		line.Name = strings.ToLower(head[:end])
		fields[0] = head[end:]
	}

	for _, field := range fields {
		if id, ok := mention(field); ok {
			line.Mentions = append(line.Mentions, id)
			continue
		}
		line.Args = append(line.Args, field)
	}
	return line, true
}

func trimPrefix(text string) (string, bool) {
	for _, prefix := range Prefixes {
		if strings.HasPrefix(text, prefix) {
			return text[len(prefix):], true
		}
	}
	return "", false
}

func isNameRune(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}

func mention(token string) (string, bool) {
	switch {
	case strings.HasPrefix(token, "<@") && strings.HasSuffix(token, ">"):
		token = token[2 : len(token)-1]
	case strings.HasPrefix(token, "@"):
		token = token[1:]
	default:
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
