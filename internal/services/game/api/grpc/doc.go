// Package grpc contains the game service gRPC surface.
//
//   - duality/: duality.v1.DualityService, command execution over structpb
//   - metadata/: request headers and the interceptor that enforces them
//   - interceptors/: call logging and span tagging
package grpc
