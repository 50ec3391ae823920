package nix

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/oshokin/nix-npm-updater/internal/logger"
)

// buildCommand evaluates and builds the flake output referencing the pins.
const buildCommand = "nix"

// ErrBuildFailed is returned when the flake no longer builds after an update.
// The sources file keeps the committed edit; the caller decides what to report.
var ErrBuildFailed = errors.New("build verification failed")

// Builder verifies that the flake still builds by running nix build.
type Builder struct {
	// command is the nix executable, replaceable in tests.
	command string
	// target is the flake installable to build; empty builds the default package.
	target string
}

// NewBuilder creates a builder for the given flake installable.
func NewBuilder(target string) *Builder {
	return &Builder{
		command: buildCommand,
		target:  target,
	}
}

// Verify builds the configured target and reports whether it succeeded.
// The call blocks until the build completes; there is no timeout.
func (b *Builder) Verify(ctx context.Context) error {
	args := []string{"build"}
	if b.target != "" {
		args = append(args, b.target)
	}

	output, err := exec.CommandContext(ctx, b.command, args...).CombinedOutput()
	if err != nil {
		logger.ErrorKV(ctx, "Build verification output",
			"command", b.command+" "+strings.Join(args, " "),
			"output", strings.TrimSpace(string(output)))

		return ErrBuildFailed
	}

	return nil
}
