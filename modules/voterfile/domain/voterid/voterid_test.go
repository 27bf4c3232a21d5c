package voterid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash_Deterministic(t *testing.T) {
	require.Equal(t, Hash("123456789"), Hash("123456789"))
	require.Equal(t, Hash("123456789"), Hash("  123456789  "), "hash must ignore surrounding whitespace")
	require.NotEqual(t, Hash("123456789"), Hash("123456780"))
	require.Len(t, Hash("123456789"), 64)
}

func TestRedact(t *testing.T) {
	require.Equal(t, "*****6789", Redact("123456789"))
	require.Equal(t, "****", Redact("1234"))
	require.Equal(t, "****", Redact("12"))
	require.NotContains(t, Redact("123456789"), "12345")
}

func TestSystemID(t *testing.T) {
	h := Hash("123456789")
	id := SystemID(h)
	require.True(t, strings.HasPrefix(id, SystemIDTag))
	require.Equal(t, SystemIDTag+h[:12], id)
}

func TestFromRaw(t *testing.T) {
	ident := FromRaw("987654321")
	require.Equal(t, Hash("987654321"), ident.Hash)
	require.Equal(t, Redact("987654321"), ident.Redacted)
	require.Equal(t, SystemID(ident.Hash), ident.SystemID)
	require.NotContains(t, ident.Redacted, "98765")
}
