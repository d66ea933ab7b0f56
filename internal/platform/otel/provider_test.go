package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/dualitydice/internal/platform/otel"
)

func TestSetupNoop(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		enabled  string
	}{
		{name: "empty endpoint", endpoint: "", enabled: ""},
		{name: "disabled", endpoint: "http://localhost:4318", enabled: "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DUALITY_OTEL_ENDPOINT", tt.endpoint)
			t.Setenv("DUALITY_OTEL_ENABLED", tt.enabled)
			if tt.enabled == "" {
				t.Setenv("DUALITY_OTEL_ENABLED", "true")
			}

			shutdown, err := otel.Setup(context.Background(), "dice-test")
			if err != nil {
				t.Fatalf("Setup() error = %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown error: %v", err)
			}
		})
	}
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so nothing is exported.
	t.Setenv("DUALITY_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("DUALITY_OTEL_ENABLED", "true")

	shutdown, err := otel.Setup(context.Background(), "dice-test")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupRejectsInvalidEnabled(t *testing.T) {
	t.Setenv("DUALITY_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("DUALITY_OTEL_ENABLED", "maybe")

	if _, err := otel.Setup(context.Background(), "dice-test"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTracerWithoutSetup(t *testing.T) {
	_, span := otel.Tracer("dice-test").Start(context.Background(), "roll")
	span.End()
}
