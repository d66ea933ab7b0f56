// Package server hosts the duality game gRPC server: DualityService plus the
// standard health service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"

	dualitygrpc "github.com/louisbranch/dualitydice/internal/services/game/api/grpc/duality"
	"github.com/louisbranch/dualitydice/internal/services/game/api/grpc/interceptors"
	grpcmeta "github.com/louisbranch/dualitydice/internal/services/game/api/grpc/metadata"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Server hosts the game gRPC server.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
}

// New creates a server listening on port.
func New(port int, backend dualitygrpc.Backend) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port), backend)
}

// NewWithAddr creates a server listening on addr.
func NewWithAddr(addr string, backend dualitygrpc.Backend) (*Server, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("listen address is required")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	server, err := NewWithListener(listener, backend)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	return server, nil
}

// NewWithListener creates a server on an existing listener.
func NewWithListener(listener net.Listener, backend dualitygrpc.Backend) (*Server, error) {
	if listener == nil {
		return nil, errors.New("listener is required")
	}
	if backend == nil {
		return nil, errors.New("duality backend is required")
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcmeta.UnaryServerInterceptor(nil),
			interceptors.LoggingInterceptor(nil),
		),
	)
	healthServer := health.NewServer()
	dualitygrpc.RegisterDualityServiceServer(grpcServer, dualitygrpc.NewDualityService(backend, nil))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(dualitygrpc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a game server on port until the context ends.
func Run(ctx context.Context, port int, backend dualitygrpc.Backend) error {
	server, err := New(port, backend)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// RunWithAddr creates and serves a game server on addr until the context ends.
func RunWithAddr(ctx context.Context, addr string, backend dualitygrpc.Backend) error {
	server, err := NewWithAddr(addr, backend)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve blocks until the server stops or the context ends. On cancel the
// health service reports NOT_SERVING before in-flight calls drain.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("game server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	log.Printf("game server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}
