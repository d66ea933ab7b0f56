// Package grpc dials duality services and waits for them to report healthy.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DialStage names the step of Dial that failed.
type DialStage string

const (
	DialStageConnect DialStage = "connect"
	DialStageHealth  DialStage = "health"
)

// DialError reports a failed Dial and the stage it failed in.
type DialError struct {
	Addr  string
	Stage DialStage
	Err   error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s: %s: %v", e.Addr, e.Stage, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// DialConfig describes one client connection.
type DialConfig struct {
	Addr string
	// HealthService is checked before Dial returns. Empty checks the
	// server as a whole.
	HealthService string
	// Timeout bounds the health wait; zero waits until ctx ends.
	Timeout time.Duration
	Logf    func(string, ...any)
	// Options replace DefaultClientDialOptions when set.
	Options []gogrpc.DialOption
	// NewClient replaces grpc.NewClient.
	NewClient func(target string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error)
}

// DefaultClientDialOptions returns plaintext options with client tracing.
func DefaultClientDialOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Dial creates a client for cfg.Addr and blocks until its health service
// reports SERVING. The connection is closed when the health wait fails.
func Dial(ctx context.Context, cfg DialConfig) (*gogrpc.ClientConn, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, &DialError{Stage: DialStageConnect, Err: errors.New("address is required")}
	}
	newClient := cfg.NewClient
	if newClient == nil {
		newClient = gogrpc.NewClient
	}
	opts := cfg.Options
	if opts == nil {
		opts = DefaultClientDialOptions()
	}

	conn, err := newClient(addr, opts...)
	if err != nil {
		return nil, &DialError{Addr: addr, Stage: DialStageConnect, Err: err}
	}

	waitCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := WaitForHealth(waitCtx, conn, cfg.HealthService, cfg.Logf); err != nil {
		_ = conn.Close()
		return nil, &DialError{Addr: addr, Stage: DialStageHealth, Err: err}
	}
	return conn, nil
}
