package x402mcp

import "strings"

// MatchNetwork reports whether pattern matches network. A pattern ending
// in "*" (e.g. "eip155:*") matches any network that starts with the text
// before the "*" (e.g. "eip155:84532"); any other pattern must match
// exactly.
// Grounded on spec §9's Design Notes direction to implement the scheme
// client registry as "a prefix/wildcard matcher with longest-match
// precedence" and on the candidate-ranking shape of x402-go's selector.go.
func MatchNetwork(pattern, network string) bool {
	if pattern == network {
		return true
	}
	prefix, ok := strings.CutSuffix(pattern, "*")
	if !ok {
		return false
	}
	return strings.HasPrefix(network, prefix)
}

// Specificity returns how specific a matching pattern is, for
// longest-match precedence when more than one registered pattern matches
// the same network. Exact patterns are always more specific than any
// wildcard; among wildcards, the longer literal prefix wins.
func Specificity(pattern string) int {
	prefix, ok := strings.CutSuffix(pattern, "*")
	if !ok {
		// Exact match: rank above any wildcard by construction.
		return len(pattern) + 1<<30
	}
	return len(prefix)
}
