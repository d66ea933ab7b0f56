package domain

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/protobuf/types/known/structpb"
)

// SheetSetInput is the input of duality_sheet_set.
type SheetSetInput struct {
	ActorID   string `json:"actor_id" jsonschema:"stable actor identifier"`
	ActorName string `json:"actor_name,omitempty" jsonschema:"display name; blank keeps the stored name"`
	GroupID   string `json:"group_id,omitempty" jsonschema:"group identifier; blank keeps the stored group"`
	Name      string `json:"name" jsonschema:"attribute key, label or alias; unknown names become experiences"`
	Value     int    `json:"value" jsonschema:"value to store"`
}

// SheetGetInput is the input of duality_sheet_get.
type SheetGetInput struct {
	ActorID string `json:"actor_id" jsonschema:"actor identifier"`
}

// SheetResult is an actor's stored values and rendered card.
type SheetResult struct {
	Key     string         `json:"key,omitempty" jsonschema:"canonical key written by duality_sheet_set"`
	ActorID string         `json:"actor_id" jsonschema:"actor identifier"`
	Name    string         `json:"name" jsonschema:"actor display name"`
	GroupID string         `json:"group_id,omitempty" jsonschema:"actor group"`
	Values  map[string]int `json:"values" jsonschema:"stored values by key"`
	Card    string         `json:"card" jsonschema:"rendered name card"`
}

// SheetSetTool defines duality_sheet_set.
func SheetSetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "duality_sheet_set",
		Description: "Writes one sheet value for an actor and refreshes the actor's card",
	}
}

// SheetGetTool defines duality_sheet_get.
func SheetGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "duality_sheet_get",
		Description: "Reads an actor's stored values and card",
	}
}

// SheetSetHandler writes a sheet value.
func SheetSetHandler(client DualityClient) mcp.ToolHandlerFor[SheetSetInput, SheetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SheetSetInput) (*mcp.CallToolResult, SheetResult, error) {
		callCtx, cancel, err := newOutgoingContext(ctx, "")
		if err != nil {
			return nil, SheetResult{}, err
		}
		defer cancel()

		in, err := newStruct(map[string]any{
			"actor_id":   input.ActorID,
			"actor_name": input.ActorName,
			"group_id":   input.GroupID,
			"name":       input.Name,
			"value":      input.Value,
		})
		if err != nil {
			return nil, SheetResult{}, err
		}
		out, err := client.SetValue(callCtx, in)
		if err != nil {
			return nil, SheetResult{}, fmt.Errorf("set %s: %w", input.Name, err)
		}
		return nil, sheetFromStruct(out), nil
	}
}

// SheetGetHandler reads a sheet.
func SheetGetHandler(client DualityClient) mcp.ToolHandlerFor[SheetGetInput, SheetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SheetGetInput) (*mcp.CallToolResult, SheetResult, error) {
		callCtx, cancel, err := newOutgoingContext(ctx, "")
		if err != nil {
			return nil, SheetResult{}, err
		}
		defer cancel()

		in, err := newStruct(map[string]any{"actor_id": input.ActorID})
		if err != nil {
			return nil, SheetResult{}, err
		}
		out, err := client.GetCard(callCtx, in)
		if err != nil {
			return nil, SheetResult{}, fmt.Errorf("get sheet: %w", err)
		}
		return nil, sheetFromStruct(out), nil
	}
}

func sheetFromStruct(out *structpb.Struct) SheetResult {
	fields := out.GetFields()
	actor := fields["actor"].GetStructValue().GetFields()
	return SheetResult{
		Key:     fields["key"].GetStringValue(),
		ActorID: actor["actor_id"].GetStringValue(),
		Name:    actor["name"].GetStringValue(),
		GroupID: actor["group_id"].GetStringValue(),
		Values:  intValues(fields["values"]),
		Card:    fields["card"].GetStringValue(),
	}
}
