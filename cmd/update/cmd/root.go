package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/nix-npm-updater/internal/config"
	"github.com/oshokin/nix-npm-updater/internal/logger"
	"github.com/oshokin/nix-npm-updater/internal/service/updater"
	"github.com/oshokin/nix-npm-updater/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// tag is the release channel a single-channel mode operates on.
	tag string
	// checkOnly reports available updates without rewriting anything.
	checkOnly bool
	// allChannels selects every configured channel.
	allChannels bool
	// debug raises the log level to debug.
	debug bool

	// rootCmd represents the base command for updating channel pins.
	rootCmd = &cobra.Command{
		Use:   "update [version]",
		Short: "Update the pinned package versions in the flake's sources file.",
		Long: `Keep the flake's pinned package versions in sync with the npm registry.

The sources file records a version and content hash per release channel. Given
an explicit version, the default channel (or the one named with --tag) is
pinned to it: the release archive's hash is fetched via nix-prefetch-url, the
channel's block in the sources file is rewritten in place, and nix build
verifies the flake still builds.

With --all, every configured channel is brought to its latest published
version in one run. With --check, the tool only reports whether newer versions
exist and exits with status 1 when at least one channel is behind; the report
includes the exact command that applies the update.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The service logs operational failures and prints check results
			// itself; cobra's own reporting would duplicate them.
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			if debug {
				logger.SetLevel(zapcore.DebugLevel)
			}

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use the positional version argument if provided.
			var explicitVersion string
			if len(args) > 0 {
				explicitVersion = args[0]
			}

			updaterOptions := &updater.Options{
				ConfigPath: configPath,
				Tag:        tag,
				Version:    explicitVersion,
				CheckOnly:  checkOnly,
				All:        allChannels,
			}

			err := updater.Run(ctx, updaterOptions)
			if errors.Is(err, updater.ErrUsage) {
				// Invalid invocations print the usage text on standard output.
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cmd.UsageString())
			}

			return err
		},
	}
)

// Execute runs the update CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Rejected invocations print usage on stdout; diagnostics stay on stderr.
	// This covers cobra's own flag-parse error path, not just RunE.
	rootCmd.SetOut(os.Stdout)

	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (\""+config.DefaultConfigFilename+"\" when present)")
	rootCmd.Flags().StringVarP(&tag, "tag", "t", "",
		"release channel to operate on (the configured default channel when omitted)")
	rootCmd.Flags().BoolVar(&checkOnly, "check", false,
		"report whether newer versions exist without updating anything")
	rootCmd.Flags().BoolVarP(&allChannels, "all", "a", false,
		"operate on every configured channel")

	// Hidden debug flag to raise log verbosity.
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	err := rootCmd.Flags().MarkHidden("debug")
	if err != nil {
		panic(err)
	}
}
