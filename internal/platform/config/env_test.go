package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Sides int `env:"DUALITY_TEST_SIDES" envDefault:"12"`
}

type prefixedConfig struct {
	MaxFear int `env:"MAX_FEAR" envDefault:"12"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Sides != 12 {
		t.Fatalf("Sides = %d, want 12", cfg.Sides)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("DUALITY_TEST_SIDES", "twelve")

	var cfg envTestConfig
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvWithPrefix(t *testing.T) {
	t.Setenv("DUALITY_TEST_MAX_FEAR", "9")

	var cfg prefixedConfig
	if err := ParseEnvWithPrefix(&cfg, "DUALITY_TEST_"); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.MaxFear != 9 {
		t.Fatalf("MaxFear = %d, want 9", cfg.MaxFear)
	}
}
