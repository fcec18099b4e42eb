package roomkey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_OrderIndependent(t *testing.T) {
	pairs := [][2]string{
		{"alice@x.com", "bob@x.com"},
		{"a", "b"},
		{"zed@co.com", "amy@co.com"},
		{"same@co.com", "same@co.com"},
	}

	for _, p := range pairs {
		require.Equal(t, Resolve(p[0], p[1]), Resolve(p[1], p[0]))
	}
}

func TestResolve_CaseAndWhitespaceInsensitive(t *testing.T) {
	want := Resolve("alice@x.com", "bob@x.com")

	require.Equal(t, want, Resolve("Alice@X.com", "bob@x.com"))
	require.Equal(t, want, Resolve("  alice@x.com ", "BOB@X.COM"))
	require.Equal(t, want, Resolve("bob@x.com\t", "ALICE@x.COM"))
}

func TestResolve_LexicographicOrdering(t *testing.T) {
	require.Equal(t, "alice@x.com|bob@x.com", Resolve("bob@x.com", "alice@x.com"))
	require.Equal(t, "alice@x.com|bob@x.com", Resolve("alice@x.com", "bob@x.com"))
}

func TestResolve_BlankIdentifiersDoNotPanic(t *testing.T) {
	// Degenerate case: both blank identifiers collide on the same key.
	// Callers must validate upstream; the resolver only has to stay total.
	require.Equal(t, "|", Resolve("", ""))
	require.Equal(t, "|", Resolve("  ", ""))
	require.Equal(t, "|bob@x.com", Resolve("", "bob@x.com"))
}
