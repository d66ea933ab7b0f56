package mcp

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "localhost:8082" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.HTTPAddr != "localhost:8087" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("DUALITY_MCP_GAME_ADDR", "env-game")
	t.Setenv("DUALITY_MCP_HTTP_ADDR", "env-http")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "flag-http", "-transport", "http"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "env-game" {
		t.Fatalf("expected env addr, got %q", cfg.Addr)
	}
	if cfg.HTTPAddr != "flag-http" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected transport http, got %q", cfg.Transport)
	}
}
