// Package command executes parsed chat command lines against the duality
// engine and renders localized replies.
package command

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/engine"
	"github.com/louisbranch/dualitydice/internal/duality/gm"
	"github.com/louisbranch/dualitydice/internal/duality/modifier"
	"github.com/louisbranch/dualitydice/internal/duality/render"
	"github.com/louisbranch/dualitydice/internal/duality/sheet"
	apperrors "github.com/louisbranch/dualitydice/internal/platform/errors"
	"github.com/louisbranch/dualitydice/internal/storage"
)

// ErrUnknownCommand is returned by Lookup for names outside the command set.
var ErrUnknownCommand = errors.New("unknown command")

// Name is a canonical command name.
type Name string

const (
	Check    Name = "dd"
	Reaction Name = "ddr"
	Test     Name = "test"
	GM       Name = "gm"
	Alias    Name = "dhalias"
	Help     Name = "dh"
)

var names = map[string]Name{
	"dd":       Check,
	"roll":     Check,
	"ddr":      Reaction,
	"reaction": Reaction,
	"test":     Test,
	"gm":       GM,
	"dhalias":  Alias,
	"alias":    Alias,
	"dh":       Help,
	"help":     Help,
}

// Lookup resolves a command name or alias.
func Lookup(name string) (Name, error) {
	if n, ok := names[strings.ToLower(strings.TrimSpace(name))]; ok {
		return n, nil
	}
	return "", ErrUnknownCommand
}

// Request is one command invocation.
type Request struct {
	// Actor is the caller. An empty GroupID marks a private invocation.
	Actor  storage.Actor
	Line   Line
	Locale string
}

// Reply is the rendered response to a command.
type Reply struct {
	Text string
	OK   bool
	// ShowHelp is set when the reply is the command usage.
	ShowHelp bool
	// Code classifies failed replies. It is empty when OK.
	Code apperrors.Code
}

// Handler executes commands.
type Handler struct {
	engine        *engine.Engine
	gms           *gm.Registry
	store         sheet.Store
	logger        *log.Logger
	defaultLocale string
}

// NewHandler builds a handler. Replies without a request locale use
// defaultLocale.
func NewHandler(eng *engine.Engine, gms *gm.Registry, store sheet.Store, logger *log.Logger, defaultLocale string) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		engine:        eng,
		gms:           gms,
		store:         store,
		logger:        logger,
		defaultLocale: defaultLocale,
	}
}

// Execute runs req and always produces a reply. Store failures are logged
// and answered with a single opaque message.
func (h *Handler) Execute(ctx context.Context, req Request) Reply {
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = h.defaultLocale
	}
	r := render.ForLocale(locale, h.engine.Roller())

	name, err := Lookup(req.Line.Name)
	if err != nil {
		return Reply{Text: r.Text("command.unknown", req.Line.Name), Code: apperrors.CodeCommandUnknown}
	}
	if len(req.Line.Args) > 0 && strings.EqualFold(req.Line.Args[0], "help") {
		return Reply{Text: h.usage(r, name), OK: true, ShowHelp: true}
	}

	switch name {
	case Alias:
		return h.alias(r, req.Line.Args)
	case Help:
		return Reply{Text: overview(r), OK: true}
	}

	req.Actor.ID = strings.TrimSpace(req.Actor.ID)
	if req.Actor.ID == "" {
		return Reply{Text: r.Text("command.error"), Code: apperrors.CodeActorIDRequired}
	}
	if err := h.store.UpsertActor(ctx, req.Actor); err != nil {
		return h.fail(r, name, apperrors.Wrap(apperrors.CodeStoreUnavailable, "register actor", err))
	}
	s := sheet.New(h.store, req.Actor)

	switch name {
	case Check:
		return h.check(ctx, r, s, req.Line, true)
	case Reaction:
		return h.check(ctx, r, s, req.Line, false)
	case Test:
		return h.test(ctx, r, s, req.Line.Args)
	default:
		return h.gm(ctx, r, s, req.Line.Args)
	}
}

func (h *Handler) check(ctx context.Context, r *render.Renderer, s sheet.Sheet, line Line, update bool) Reply {
	cmd, err := modifier.ParseArgs(ctx, line.Args, modifier.LookupFunc(s.HasExperience))
	if err != nil {
		return h.fail(r, Check, apperrors.Wrap(apperrors.CodeStoreUnavailable, "parse arguments", err))
	}
	res, err := h.engine.Resolve(ctx, engine.Request{
		Sheet:            s,
		Command:          cmd,
		Mentions:         line.Mentions,
		UpdateAttributes: update,
	})
	if err != nil {
		return h.fail(r, Check, err)
	}
	return Reply{Text: r.Check(r.Title(s.Name(), cmd.Reason), res), OK: true}
}

// test rolls one base die without arguments, or resolves a check with
// preset dice: `test <hope> <fear>` or `test -r <hope> <fear>`.
func (h *Handler) test(ctx context.Context, r *render.Renderer, s sheet.Sheet, args []string) Reply {
	sides := h.engine.Config().BaseDiceSides
	if len(args) == 0 {
		return Reply{Text: r.Text("command.test.dice", sides, h.engine.Roller().Roll(sides)), OK: true}
	}

	reaction := args[0] == "-r"
	if reaction {
		if len(args) != 3 {
			return Reply{Text: r.Text("command.test.usage_reaction"), Code: apperrors.CodeCommandUsage}
		}
		args = args[1:]
	} else if len(args) != 2 {
		return Reply{Text: r.Text("command.test.usage"), Code: apperrors.CodeCommandUsage}
	}

	hope, hopeOK := leadingInt(args[0])
	fear, fearOK := leadingInt(args[1])
	if !hopeOK || !fearOK || hope < 1 || hope > sides || fear < 1 || fear > sides {
		return Reply{Text: r.Text("command.test.range", sides), Code: apperrors.CodeDualityInvalidDie}
	}

	res, err := h.engine.Resolve(ctx, engine.Request{
		Sheet:            s,
		UpdateAttributes: !reaction,
		Preset:           &engine.Preset{Hope: hope, Fear: fear},
	})
	if err != nil {
		return h.fail(r, Test, err)
	}
	reason := r.Text("command.test.reason")
	if reaction {
		reason = r.Text("command.test.reason_reaction")
	}
	return Reply{Text: r.Check(r.Title(s.Name(), reason), res), OK: true}
}

func (h *Handler) gm(ctx context.Context, r *render.Renderer, s sheet.Sheet, args []string) Reply {
	if s.GroupID() == "" {
		return Reply{Text: r.Text("command.group_only"), Code: apperrors.CodeGroupRequired}
	}

	if len(args) > 0 && strings.EqualFold(args[0], "clear") {
		previous, ok, err := h.gms.Resign(ctx, s.GroupID())
		if err != nil {
			return h.fail(r, GM, apperrors.Wrap(apperrors.CodeStoreUnavailable, "resign gm", err))
		}
		if !ok {
			return Reply{Text: r.Text("command.gm.none_to_remove"), OK: true}
		}
		return Reply{Text: r.Text("command.gm.removed", previous), OK: true}
	}

	if _, err := h.gms.Become(ctx, s, h.engine.Config().MaxFear); err != nil {
		return h.fail(r, GM, apperrors.Wrap(apperrors.CodeStoreUnavailable, "bind gm", err))
	}
	return Reply{Text: r.Text("command.gm.set"), OK: true}
}

func (h *Handler) alias(r *render.Renderer, args []string) Reply {
	var b strings.Builder
	if len(args) == 0 {
		b.WriteString(r.Text("command.alias.title"))
		b.WriteString("\n\n")
		b.WriteString(r.Text("command.alias.usage"))
		b.WriteString("\n\n")
		b.WriteString(r.Text("command.alias.list"))
		for _, def := range attribute.All() {
			b.WriteString("\n• ")
			b.WriteString(string(def.Key))
			b.WriteString(" (")
			b.WriteString(r.AttributeLabel(def.Key))
			b.WriteString(")")
		}
		return Reply{Text: b.String(), OK: true}
	}

	query := strings.ToLower(args[0])
	def, ok := attribute.Lookup(query)
	if !ok {
		return Reply{Text: r.Text("command.alias.not_found", query), OK: true}
	}
	b.WriteString(r.Text("command.alias.found", r.AttributeLabel(def.Key)))
	b.WriteString("\n\n")
	b.WriteString(r.Text("command.alias.canonical", def.Key))
	b.WriteByte('\n')
	b.WriteString(r.Text("command.alias.aliases", strings.Join(def.Aliases, ", ")))
	b.WriteString("\n\n")
	b.WriteString(r.Text("command.alias.examples"))
	b.WriteByte('\n')
	b.WriteString(r.Text("command.alias.example", string(def.Key)))
	if len(def.Aliases) > 0 {
		b.WriteByte('\n')
		b.WriteString(r.Text("command.alias.example", "+"+def.Aliases[0]))
	}
	if len(def.Aliases) > 1 {
		b.WriteByte('\n')
		b.WriteString(r.Text("command.alias.example", def.Aliases[len(def.Aliases)-1]))
	}
	return Reply{Text: b.String(), OK: true}
}

func (h *Handler) usage(r *render.Renderer, name Name) string {
	switch name {
	case Check:
		return r.Text("command.usage.dd")
	case Reaction:
		return r.Text("command.usage.ddr")
	case Test:
		return r.Text("command.usage.test")
	case GM:
		return r.Text("command.usage.gm", h.engine.Config().MaxFear)
	case Alias:
		return r.Text("command.usage.dhalias")
	default:
		return overview(r)
	}
}

func overview(r *render.Renderer) string {
	lines := []string{r.Text("command.help.title"), ""}
	for _, key := range []string{"dh", "dd", "ddr", "test", "gm", "dhalias"} {
		lines = append(lines, r.Text("command.help."+key))
	}
	return strings.Join(lines, "\n")
}

// fail logs err and returns the opaque failure reply.
func (h *Handler) fail(r *render.Renderer, name Name, err error) Reply {
	code := apperrors.CodeOf(err)
	h.logger.Printf("command %s failed: code=%s err=%v", name, code, err)
	return Reply{Text: r.Text("command.error"), Code: code}
}

// leadingInt parses the leading signed digit run of s and ignores the rest,
// so "12abc" reads as 12.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	return v, err == nil
}
