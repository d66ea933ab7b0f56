package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/louisbranch/dualitydice/internal/platform/discovery"
	platformgrpc "github.com/louisbranch/dualitydice/internal/platform/grpc"
	"github.com/louisbranch/dualitydice/internal/platform/timeouts"
	dualitygrpc "github.com/louisbranch/dualitydice/internal/services/game/api/grpc/duality"
	"github.com/louisbranch/dualitydice/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc"
)

const (
	serverName    = "duality-mcp"
	serverVersion = "0.1.0"

	healthCheckInterval = 30 * time.Second
)

// TransportKind selects how MCP clients reach the server.
type TransportKind string

const (
	// TransportStdio runs MCP over stdin/stdout for local tool hosts.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP runs MCP over streamable HTTP.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	GRPCAddr  string
	Transport TransportKind
	HTTPAddr  string
}

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
	conn      *grpc.ClientConn
}

// New dials the game service and builds a server on the connection.
func New(ctx context.Context, grpcAddr string) (*Server, error) {
	conn, err := dialGameGRPC(ctx, grpcAddress(grpcAddr))
	if err != nil {
		return nil, err
	}
	return newServer(conn, dualitygrpc.NewClient(conn)), nil
}

// newServer registers the duality tools against client. conn may be nil
// when the caller owns the connection.
func newServer(conn *grpc.ClientConn, client domain.DualityClient) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(mcpServer, domain.RollTool(), domain.RollHandler(client))
	mcp.AddTool(mcpServer, domain.GMTool(), domain.GMHandler(client))
	mcp.AddTool(mcpServer, domain.AliasTool(), domain.AliasHandler(client))
	mcp.AddTool(mcpServer, domain.SheetSetTool(), domain.SheetSetHandler(client))
	mcp.AddTool(mcpServer, domain.SheetGetTool(), domain.SheetGetHandler(client))

	return &Server{mcpServer: mcpServer, conn: conn}
}

// Run serves MCP over the configured transport until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		return runWithTransport(ctx, cfg.GRPCAddr, &mcp.StdioTransport{})
	case TransportHTTP:
		return runWithHTTPTransport(ctx, cfg)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

func runWithTransport(ctx context.Context, grpcAddr string, transport mcp.Transport) error {
	server, err := New(ctx, grpcAddr)
	if err != nil {
		return err
	}
	return server.serveWithTransport(ctx, transport)
}

func runWithHTTPTransport(ctx context.Context, cfg Config) error {
	httpAddr := discovery.OrDefaultAddr(cfg.HTTPAddr, discovery.ServiceMCP)
	server, err := New(ctx, cfg.GRPCAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Printf("close gRPC connection: %v", err)
		}
	}()

	healthCtx, healthCancel := context.WithCancel(ctx)
	defer healthCancel()
	go server.monitorHealth(healthCtx, healthCheckInterval)

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           server.HTTPHandler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	log.Printf("mcp server listening on %s", httpAddr)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// HTTPHandler serves the MCP streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// Serve runs the server on stdio until it stops or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// Close releases the gRPC connection.
func (s *Server) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// serveWithTransport runs the MCP session and then closes the gRPC
// connection on every exit path.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return errors.New("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	closeErr := s.Close()
	if closeErr != nil {
		if err == nil {
			return fmt.Errorf("close gRPC connection: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close gRPC connection: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// monitorHealth logs game service health failures; tool calls surface their
// own errors.
func (s *Server) monitorHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.conn == nil {
				continue
			}
			if err := platformgrpc.CheckHealth(ctx, s.conn, dualitygrpc.ServiceName); err != nil {
				log.Printf("game gRPC health: %v", err)
			}
		}
	}
}

func dialGameGRPC(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	logf := func(format string, args ...any) {
		log.Printf("game gRPC %s: "+format, append([]any{addr}, args...)...)
	}
	conn, err := platformgrpc.Dial(ctx, platformgrpc.DialConfig{
		Addr:          addr,
		HealthService: dualitygrpc.ServiceName,
		Timeout:       timeouts.GRPCDial,
		Logf:          logf,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to game server at %s: %w", addr, err)
	}
	return conn, nil
}

func grpcAddress(addr string) string {
	return discovery.OrDefaultAddr(addr, discovery.ServiceGame)
}
