package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	Addr   string `env:"DUALITY_CMD_TEST_ADDR" envDefault:"127.0.0.1:8080"`
	Driver string `env:"DUALITY_CMD_TEST_DRIVER" envDefault:"sqlite"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("DUALITY_CMD_TEST_ADDR", "env:9000")
	t.Setenv("DUALITY_CMD_TEST_DRIVER", "bbolt")

	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "address")
	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "driver")

	if err := ParseArgs(fs, []string{"-addr", "flag:9001"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Addr != "flag:9001" {
		t.Fatalf("Addr = %q, want flag value", cfg.Addr)
	}
	if cfg.Driver != "bbolt" {
		t.Fatalf("Driver = %q, want env value", cfg.Driver)
	}
}

func TestParseConfigFromArgs(t *testing.T) {
	t.Setenv("DUALITY_CMD_TEST_DRIVER", "memory")

	cfg := testConfig{}
	fs := flag.NewFlagSet("configargs", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", "", "address")
	if err := ParseConfigFromArgs(&cfg, fs, []string{"-addr", "flag:9002"}); err != nil {
		t.Fatalf("parse config and args: %v", err)
	}
	if cfg.Addr != "flag:9002" || cfg.Driver != "memory" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, nil); err == nil {
		t.Fatal("expected nil parser error")
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil target error")
	}
}

func TestLogPrefix(t *testing.T) {
	if got := LogPrefix(ServiceChat); got != "[CHAT] " {
		t.Fatalf("LogPrefix() = %q", got)
	}
}

func TestRunWithTelemetry(t *testing.T) {
	t.Setenv("DUALITY_OTEL_ENDPOINT", "")

	if err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceGame, nil); err == nil {
		t.Fatal("expected missing run function error")
	}

	want := errors.New("stopped")
	err := RunWithTelemetry(context.Background(), ServiceGame, func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("RunWithTelemetry() = %v, want %v", err, want)
	}
}
