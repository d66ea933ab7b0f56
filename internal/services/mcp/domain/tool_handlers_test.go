package domain

import (
	"context"
	"errors"
	"testing"

	grpcmeta "github.com/louisbranch/dualitydice/internal/services/game/api/grpc/metadata"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeDualityClient struct {
	lastIn  *structpb.Struct
	lastMD  metadata.MD
	out     map[string]any
	err     error
	methods []string
}

func (c *fakeDualityClient) call(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	c.methods = append(c.methods, method)
	c.lastIn = in
	c.lastMD, _ = metadata.FromOutgoingContext(ctx)
	if c.err != nil {
		return nil, c.err
	}
	return structpb.NewStruct(c.out)
}

func (c *fakeDualityClient) Execute(ctx context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "Execute", in)
}

func (c *fakeDualityClient) SetValue(ctx context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "SetValue", in)
}

func (c *fakeDualityClient) GetCard(ctx context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetCard", in)
}

func (c *fakeDualityClient) field(key string) *structpb.Value {
	return c.lastIn.GetFields()[key]
}

func TestRollHandler(t *testing.T) {
	t.Run("check", func(t *testing.T) {
		client := &fakeDualityClient{out: map[string]any{"text": "Total: *13 with Hope*", "ok": true}}
		toolResult, result, err := RollHandler(client)(context.Background(), nil, RollInput{
			ActorID:   "u1",
			ActorName: "Ash",
			GroupID:   "g1",
			Args:      " +agi climb ",
			Mentions:  []string{"u2"},
			Locale:    "zh-CN",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.OK || result.Text != "Total: *13 with Hope*" {
			t.Fatalf("result = %+v", result)
		}
		if toolResult == nil || toolResult.IsError {
			t.Fatalf("tool result = %+v", toolResult)
		}
		if got := client.field("text").GetStringValue(); got != ".dd +agi climb" {
			t.Fatalf("text = %q", got)
		}
		if got := client.field("mentions").GetListValue().GetValues(); len(got) != 1 || got[0].GetStringValue() != "u2" {
			t.Fatalf("mentions = %v", got)
		}
		if got := client.lastMD.Get(grpcmeta.LocaleHeader); len(got) != 1 || got[0] != "zh-CN" {
			t.Fatalf("locale header = %v", got)
		}
		if got := client.lastMD.Get(grpcmeta.RequestIDHeader); len(got) != 1 || got[0] == "" {
			t.Fatalf("request id header = %v", got)
		}
	})

	t.Run("reaction", func(t *testing.T) {
		client := &fakeDualityClient{out: map[string]any{"ok": true}}
		if _, _, err := RollHandler(client)(context.Background(), nil, RollInput{ActorID: "u1", Reaction: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := client.field("text").GetStringValue(); got != ".ddr" {
			t.Fatalf("text = %q", got)
		}
	})

	t.Run("failed reply is a tool error", func(t *testing.T) {
		client := &fakeDualityClient{out: map[string]any{"text": "usage", "ok": false, "code": "COMMAND_USAGE"}}
		toolResult, result, err := RollHandler(client)(context.Background(), nil, RollInput{ActorID: "u1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !toolResult.IsError || result.Code != "COMMAND_USAGE" {
			t.Fatalf("tool result = %+v, result = %+v", toolResult, result)
		}
	})

	t.Run("gRPC error", func(t *testing.T) {
		client := &fakeDualityClient{err: errors.New("connection refused")}
		if _, _, err := RollHandler(client)(context.Background(), nil, RollInput{ActorID: "u1"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestGMHandler(t *testing.T) {
	tests := []struct {
		name  string
		input GMInput
		want  string
	}{
		{name: "take seat", input: GMInput{ActorID: "u1", GroupID: "g1"}, want: ".gm"},
		{name: "clear", input: GMInput{ActorID: "u1", GroupID: "g1", Clear: true}, want: ".gm clear"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeDualityClient{out: map[string]any{"ok": true}}
			if _, _, err := GMHandler(client)(context.Background(), nil, tt.input); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := client.field("text").GetStringValue(); got != tt.want {
				t.Fatalf("text = %q, want %q", got, tt.want)
			}
			if got := client.field("group_id").GetStringValue(); got != "g1" {
				t.Fatalf("group_id = %q", got)
			}
		})
	}
}

func TestAliasHandlerSendsNoActor(t *testing.T) {
	client := &fakeDualityClient{out: map[string]any{"text": "Name: hope", "ok": true}}
	_, result, err := AliasHandler(client)(context.Background(), nil, AliasInput{Query: "希望"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "Name: hope" {
		t.Fatalf("result = %+v", result)
	}
	if got := client.field("text").GetStringValue(); got != ".dhalias 希望" {
		t.Fatalf("text = %q", got)
	}
	if got := client.field("actor_id").GetStringValue(); got != "" {
		t.Fatalf("actor_id = %q, want empty", got)
	}
}

func TestSheetHandlers(t *testing.T) {
	card := map[string]any{
		"key":    "hope",
		"actor":  map[string]any{"actor_id": "u1", "name": "Ash", "group_id": "g1"},
		"values": map[string]any{"hope": 3, "hope_max": 6},
		"card":   "Ash Hope 3/6",
	}

	t.Run("set", func(t *testing.T) {
		client := &fakeDualityClient{out: card}
		_, result, err := SheetSetHandler(client)(context.Background(), nil, SheetSetInput{ActorID: "u1", Name: "希望值", Value: 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Key != "hope" || result.Name != "Ash" || result.Values["hope"] != 3 || result.Card != "Ash Hope 3/6" {
			t.Fatalf("result = %+v", result)
		}
		if got := client.field("value").GetNumberValue(); got != 3 {
			t.Fatalf("value = %v", got)
		}
		if client.methods[0] != "SetValue" {
			t.Fatalf("methods = %v", client.methods)
		}
	})

	t.Run("get", func(t *testing.T) {
		client := &fakeDualityClient{out: card}
		_, result, err := SheetGetHandler(client)(context.Background(), nil, SheetGetInput{ActorID: "u1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ActorID != "u1" || result.Values["hope_max"] != 6 {
			t.Fatalf("result = %+v", result)
		}
		if client.methods[0] != "GetCard" {
			t.Fatalf("methods = %v", client.methods)
		}
	})

	t.Run("gRPC error", func(t *testing.T) {
		client := &fakeDualityClient{err: errors.New("not found")}
		if _, _, err := SheetGetHandler(client)(context.Background(), nil, SheetGetInput{ActorID: "ghost"}); err == nil {
			t.Fatal("expected error")
		}
	})
}
