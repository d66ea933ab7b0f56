// Package service hosts the duality MCP server. Tools call the game service
// over gRPC; the server runs on stdio or streamable HTTP.
package service
