package chat

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8086" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Service.StoreDriver != "sqlite" || cfg.Service.DBPath != "data/duality.db" {
		t.Fatalf("expected default store, got %+v", cfg.Service)
	}
	if cfg.Service.Engine.BaseDiceSides != 12 {
		t.Fatalf("expected default rules, got %+v", cfg.Service.Engine)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("DUALITY_CHAT_HTTP_ADDR", "env-chat")
	t.Setenv("DUALITY_STORE_DRIVER", "bbolt")
	t.Setenv("DUALITY_LOCALE", "zh-Hans")

	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	args := []string{
		"-http-addr", "flag-chat",
		"-db-path", "/tmp/flag.db",
	}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-chat" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Service.StoreDriver != "bbolt" || cfg.Service.DBPath != "/tmp/flag.db" || cfg.Service.Locale != "zh-Hans" {
		t.Fatalf("expected env and flag overrides, got %+v", cfg.Service)
	}
}
