// Package discovery holds the default listen and dial addresses of the
// duality services so every binary agrees on them.
package discovery

import (
	"net"
	"strconv"
	"strings"
)

// Service identities.
const (
	ServiceGame = "game"
	ServiceChat = "chat"
	ServiceMCP  = "mcp"
)

// LocalHost is the host used for dial defaults.
const LocalHost = "localhost"

var ports = map[string]int{
	ServiceGame: 8082,
	ServiceChat: 8086,
	ServiceMCP:  8087,
}

// Port returns the conventional port of service, or 0 when unknown.
func Port(service string) int {
	return ports[strings.TrimSpace(service)]
}

// DefaultAddr returns host:port for service on the local host, or "" when
// the service is unknown.
func DefaultAddr(service string) string {
	port := Port(service)
	if port <= 0 {
		return ""
	}
	return net.JoinHostPort(LocalHost, strconv.Itoa(port))
}

// OrDefaultAddr returns value when set, otherwise DefaultAddr(service).
func OrDefaultAddr(value, service string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return DefaultAddr(service)
}
