package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/dualitydice/internal/platform/id"
	grpcmeta "github.com/louisbranch/dualitydice/internal/services/game/api/grpc/metadata"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// grpcCallTimeout bounds each tool's call to the game service.
const grpcCallTimeout = 10 * time.Second

// DualityClient is the subset of the game service client the tools use.
type DualityClient interface {
	Execute(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetValue(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCard(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// newOutgoingContext bounds ctx and tags it with a fresh request ID and the
// caller's locale.
func newOutgoingContext(ctx context.Context, locale string) (context.Context, context.CancelFunc, error) {
	requestID, err := id.NewID()
	if err != nil {
		return nil, nil, fmt.Errorf("generate request id: %w", err)
	}
	pairs := []string{grpcmeta.RequestIDHeader, "mcp-" + requestID}
	if locale != "" {
		pairs = append(pairs, grpcmeta.LocaleHeader, locale)
	}
	runCtx, cancel := context.WithTimeout(ctx, grpcCallTimeout)
	return metadata.AppendToOutgoingContext(runCtx, pairs...), cancel, nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return in, nil
}
