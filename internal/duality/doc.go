// Package duality groups the Duality dice rules: attribute keys, modifier
// parsing, the resource ledger, help resolution, the roll engine and the
// command layer that drives them from chat-style command lines.
package duality
