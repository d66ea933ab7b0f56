// Package api contains the game service API implementations, organized by
// transport. gRPC is the only transport today.
package api
