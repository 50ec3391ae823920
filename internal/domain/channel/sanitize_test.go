package channel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSanitizeToken verifies the character filter on clean and hostile inputs.
func TestSanitizeToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"1.2.3", "1.2.3"},
		{"2.0.0-beta.1", "2.0.0-beta.1"},
		{"release_candidate", "release_candidate"},
		{"1.0.0\n", "1.0.0"},
		{"v1; rm -rf /", "v1rm-rf"},
		{`1.0.0"; sha256 = "x`, "1.0.0sha256x"},
		{"0sd3k…j2l‮", "0sd3kj2l"},
		{"sha256:abcDEF0123=", "sha256abcDEF0123"},
		{"  spaced\tout  ", "spacedout"},
		{"\x00\x1b[31mred\x1b[0m", "31mred0m"},
	}

	for _, tc := range cases {
		got := SanitizeToken(tc.input)
		require.Equal(t, tc.expected, got)

		// Idempotent: sanitizing a sanitized token changes nothing.
		require.Equal(t, got, SanitizeToken(got))

		// Never longer than the input.
		require.LessOrEqual(t, len(got), len(tc.input))
	}
}

// TestValidTag verifies acceptance of structural-match-safe names only.
func TestValidTag(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"latest", "alpha", "beta", "native", "v2", "release_1.x"} {
		require.True(t, ValidTag(name), name)
	}

	for _, name := range []string{"", "beta channel", "latest\n", "a/b", "весна"} {
		require.False(t, ValidTag(name), name)
	}
}

// TestPinIsZero verifies zero-value detection for pins.
func TestPinIsZero(t *testing.T) {
	t.Parallel()

	require.True(t, Pin{}.IsZero())
	require.False(t, Pin{Version: "1.2.3"}.IsZero())
	require.False(t, Pin{SHA256: "0sd3kj2l"}.IsZero())
}
