package service

import (
	"context"
	"io"
	"log"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/dualitydice/internal/core/dice"
	"github.com/louisbranch/dualitydice/internal/duality/engine"
	dualityservice "github.com/louisbranch/dualitydice/internal/duality/service"
	gameserver "github.com/louisbranch/dualitydice/internal/services/game/app"
	"github.com/louisbranch/dualitydice/internal/storage/memory"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// startGameServer serves the game gRPC API on a loopback port.
func startGameServer(t *testing.T, rolls ...int) string {
	t.Helper()
	cfg := dualityservice.Config{Locale: "en", Engine: engine.DefaultConfig()}
	backend := dualityservice.New(memory.New(), cfg, dice.NewSequence(rolls...), log.New(io.Discard, "", 0))

	server, err := gameserver.NewWithAddr("127.0.0.1:0", backend)
	if err != nil {
		t.Fatalf("start game server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	})
	return server.Addr()
}

// connectMCP runs the MCP server on in-memory transports and returns a
// client session.
func connectMCP(t *testing.T, grpcAddr string) (*mcp.ClientSession, <-chan error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- runWithTransport(ctx, grpcAddr, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer connectCancel()
	session, err := client.Connect(connectCtx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
	})
	return session, serveErr, cancel
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	return result
}

func structured(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	out, ok := result.StructuredContent.(map[string]any)
	if !ok {
		t.Fatalf("structured content = %T", result.StructuredContent)
	}
	return out
}

func TestToolsAreListed(t *testing.T) {
	session, _, _ := connectMCP(t, startGameServer(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	list, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"duality_alias", "duality_gm", "duality_roll", "duality_sheet_get", "duality_sheet_set"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("tools = %v, want %v", names, want)
	}
}

func TestRollAndSheetTools(t *testing.T) {
	session, _, _ := connectMCP(t, startGameServer(t, 8, 3))

	set := callTool(t, session, "duality_sheet_set", map[string]any{
		"actor_id":   "u1",
		"actor_name": "Ash",
		"group_id":   "g1",
		"name":       "agi",
		"value":      2,
	})
	if set.IsError {
		t.Fatalf("sheet set failed: %+v", set.Content)
	}
	if got := structured(t, set)["key"]; got != "agility" {
		t.Fatalf("key = %v, want agility", got)
	}

	roll := callTool(t, session, "duality_roll", map[string]any{
		"actor_id": "u1",
		"group_id": "g1",
		"args":     "+agi climb",
	})
	if roll.IsError {
		t.Fatalf("roll failed: %+v", roll.Content)
	}
	if text, _ := structured(t, roll)["text"].(string); !strings.Contains(text, "Total: *13 with Hope*") {
		t.Fatalf("roll text = %q", text)
	}

	get := callTool(t, session, "duality_sheet_get", map[string]any{"actor_id": "u1"})
	values, _ := structured(t, get)["values"].(map[string]any)
	if values["hope"] != float64(1) {
		t.Fatalf("hope = %v, want 1 after a Hope result", values["hope"])
	}
}

func TestGMToolOutsideGroupIsToolError(t *testing.T) {
	session, _, _ := connectMCP(t, startGameServer(t))

	result := callTool(t, session, "duality_gm", map[string]any{"actor_id": "u1", "group_id": ""})
	if !result.IsError {
		t.Fatalf("expected tool error, got %+v", result)
	}
	if got := structured(t, result)["code"]; got != "GROUP_REQUIRED" {
		t.Fatalf("code = %v", got)
	}
}

func TestSheetGetUnknownActorIsToolError(t *testing.T) {
	session, _, _ := connectMCP(t, startGameServer(t))

	result := callTool(t, session, "duality_sheet_get", map[string]any{"actor_id": "ghost"})
	if !result.IsError {
		t.Fatalf("expected tool error, got %+v", result)
	}
}

func TestRunWithTransportStopsOnCancel(t *testing.T) {
	_, serveErr, cancel := connectMCP(t, startGameServer(t))
	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestRunUnsupportedTransport(t *testing.T) {
	err := Run(context.Background(), Config{GRPCAddr: "localhost:0", Transport: "websocket"})
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("err = %v, want not supported", err)
	}
}

func TestMonitorHealthExitsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &Server{}

	done := make(chan struct{})
	go func() {
		server.monitorHealth(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitorHealth did not exit after context cancellation")
	}
}

func TestGRPCAddressDefault(t *testing.T) {
	if got := grpcAddress("  "); got != "localhost:8082" {
		t.Fatalf("grpcAddress = %q", got)
	}
	if got := grpcAddress("game:9000"); got != "game:9000" {
		t.Fatalf("grpcAddress = %q", got)
	}
}
