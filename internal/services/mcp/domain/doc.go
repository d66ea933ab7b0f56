// Package domain defines the duality MCP tools. Each handler turns tool input
// into a duality.v1.DualityService call and maps the reply back.
package domain
