package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/protobuf/types/known/structpb"
)

// actor identifies the caller of a tool.
type actor struct {
	id, name, groupID string
}

// CommandResult is the rendered reply of a command.
type CommandResult struct {
	Text     string `json:"text" jsonschema:"localized reply text"`
	OK       bool   `json:"ok" jsonschema:"whether the command succeeded"`
	ShowHelp bool   `json:"show_help,omitempty" jsonschema:"whether the reply is usage help"`
	Code     string `json:"code,omitempty" jsonschema:"machine-readable failure code"`
}

// RollInput is the input of duality_roll.
type RollInput struct {
	ActorID   string   `json:"actor_id" jsonschema:"stable actor identifier"`
	ActorName string   `json:"actor_name,omitempty" jsonschema:"display name; defaults to the stored name or the id"`
	GroupID   string   `json:"group_id,omitempty" jsonschema:"group (table) identifier"`
	Args      string   `json:"args,omitempty" jsonschema:"modifier expression and reason, e.g. '+agi adv [15] climb'"`
	Mentions  []string `json:"mentions,omitempty" jsonschema:"actor ids asked to help"`
	Reaction  bool     `json:"reaction,omitempty" jsonschema:"roll a reaction: no Hope, Stress or Fear changes"`
	Locale    string   `json:"locale,omitempty" jsonschema:"reply locale, e.g. en or zh-CN"`
}

// GMInput is the input of duality_gm.
type GMInput struct {
	ActorID   string `json:"actor_id" jsonschema:"stable actor identifier"`
	ActorName string `json:"actor_name,omitempty" jsonschema:"display name"`
	GroupID   string `json:"group_id" jsonschema:"group (table) identifier"`
	Clear     bool   `json:"clear,omitempty" jsonschema:"resign as GM instead of taking the seat"`
	Locale    string `json:"locale,omitempty" jsonschema:"reply locale"`
}

// AliasInput is the input of duality_alias.
type AliasInput struct {
	Query  string `json:"query,omitempty" jsonschema:"attribute key, label or alias; empty lists every key"`
	Locale string `json:"locale,omitempty" jsonschema:"reply locale"`
}

// RollTool defines duality_roll.
func RollTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "duality_roll",
		Description: "Rolls a Duality check (or reaction) for an actor, applying Hope, Stress, GM Fear and helper effects",
	}
}

// GMTool defines duality_gm.
func GMTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "duality_gm",
		Description: "Binds the actor as the group's GM, or resigns the seat",
	}
}

// AliasTool defines duality_alias.
func AliasTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "duality_alias",
		Description: "Lists attribute keys or explains the aliases of one key",
	}
}

// RollHandler runs .dd or .ddr.
func RollHandler(client DualityClient) mcp.ToolHandlerFor[RollInput, CommandResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollInput) (*mcp.CallToolResult, CommandResult, error) {
		name := "dd"
		if input.Reaction {
			name = "ddr"
		}
		mentions := make([]any, 0, len(input.Mentions))
		for _, m := range input.Mentions {
			mentions = append(mentions, m)
		}
		caller := actor{id: input.ActorID, name: input.ActorName, groupID: input.GroupID}
		return execute(ctx, client, caller, commandLine(name, input.Args), input.Locale, mentions)
	}
}

// GMHandler runs .gm or .gm clear.
func GMHandler(client DualityClient) mcp.ToolHandlerFor[GMInput, CommandResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GMInput) (*mcp.CallToolResult, CommandResult, error) {
		args := ""
		if input.Clear {
			args = "clear"
		}
		caller := actor{id: input.ActorID, name: input.ActorName, groupID: input.GroupID}
		return execute(ctx, client, caller, commandLine("gm", args), input.Locale, nil)
	}
}

// AliasHandler runs .dhalias.
func AliasHandler(client DualityClient) mcp.ToolHandlerFor[AliasInput, CommandResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AliasInput) (*mcp.CallToolResult, CommandResult, error) {
		return execute(ctx, client, actor{}, commandLine("dhalias", input.Query), input.Locale, nil)
	}
}

func commandLine(name, args string) string {
	args = strings.TrimSpace(args)
	if args == "" {
		return "." + name
	}
	return "." + name + " " + args
}

func execute(ctx context.Context, client DualityClient, caller actor, text, locale string, mentions []any) (*mcp.CallToolResult, CommandResult, error) {
	callCtx, cancel, err := newOutgoingContext(ctx, locale)
	if err != nil {
		return nil, CommandResult{}, err
	}
	defer cancel()

	in, err := newStruct(map[string]any{
		"actor_id":   caller.id,
		"actor_name": caller.name,
		"group_id":   caller.groupID,
		"text":       text,
		"locale":     locale,
		"mentions":   mentions,
	})
	if err != nil {
		return nil, CommandResult{}, err
	}
	out, err := client.Execute(callCtx, in)
	if err != nil {
		return nil, CommandResult{}, fmt.Errorf("execute %s: %w", text, err)
	}

	fields := out.GetFields()
	result := CommandResult{
		Text:     fields["text"].GetStringValue(),
		OK:       fields["ok"].GetBoolValue(),
		ShowHelp: fields["show_help"].GetBoolValue(),
		Code:     fields["code"].GetStringValue(),
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: result.Text}},
		IsError: !result.OK,
	}, result, nil
}

func intValues(v *structpb.Value) map[string]int {
	fields := v.GetStructValue().GetFields()
	values := make(map[string]int, len(fields))
	for key, value := range fields {
		values[key] = int(value.GetNumberValue())
	}
	return values
}
