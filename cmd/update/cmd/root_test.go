package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRootCommand_FlagParseError verifies a rejected invocation prints the
// usage text on standard output and the diagnostic on standard error.
func TestRootCommand_FlagParseError(t *testing.T) {
	// Exercises the package-level command, so no t.Parallel.
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)

	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs([]string{"--tag"})

	t.Cleanup(func() {
		rootCmd.SetOut(os.Stdout)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	require.Error(t, err)

	require.Contains(t, errOut.String(), "flag needs an argument")
	require.Contains(t, out.String(), "Usage:")
	require.Contains(t, out.String(), "update [version]")
}
