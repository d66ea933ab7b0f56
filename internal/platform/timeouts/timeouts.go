// Package timeouts defines timeout constants shared by the services.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing the game service.
const GRPCDial = 2 * time.Second

// GRPCRequest caps one CLI call to the game service.
const GRPCRequest = 5 * time.Second

// ReadHeader limits how long the chat server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits graceful shutdown of HTTP and gRPC servers.
const Shutdown = 5 * time.Second

// Command caps one dice command, store round trips included.
const Command = 3 * time.Second
