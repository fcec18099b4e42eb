// Package roomkey derives canonical room identifiers for 1:1 conversations.
package roomkey

import "strings"

// Delimiter separates the two participant identifiers in a room key.
// It is not a legal character in an identifier (emails), so keys are
// unambiguous.
const Delimiter = "|"

// Resolve returns the canonical room key for two participant identifiers.
// The key is order-independent: Resolve(a, b) == Resolve(b, a). Identifiers
// are trimmed and lower-cased before ordering, so case and surrounding
// whitespace never produce distinct rooms.
//
// Blank identifiers normalize to the empty string; the resolver stays total
// and callers are expected to reject blank participants before resolving.
func Resolve(a, b string) string {
	na := Normalize(a)
	nb := Normalize(b)
	if na <= nb {
		return na + Delimiter + nb
	}
	return nb + Delimiter + na
}

// Normalize trims and lower-cases a participant identifier.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
