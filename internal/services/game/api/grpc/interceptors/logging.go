// Package interceptors holds cross-cutting gRPC middleware for the game
// service.
package interceptors

import (
	"context"
	"log"
	"time"

	grpcmeta "github.com/louisbranch/dualitydice/internal/services/game/api/grpc/metadata"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor logs one line per unary call and tags the active span
// with the request ID. It must run after the metadata interceptor.
func LoggingInterceptor(logger *log.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = log.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		requestID := grpcmeta.RequestIDFromContext(ctx)
		if span := trace.SpanFromContext(ctx); span.IsRecording() && requestID != "" {
			span.SetAttributes(attribute.String("duality.request_id", requestID))
		}

		resp, err := handler(ctx, req)

		logger.Printf("grpc %s code=%s request_id=%s duration=%s",
			info.FullMethod, status.Code(err), requestID, time.Since(start).Round(time.Microsecond))
		return resp, err
	}
}
