package nix

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/nix-npm-updater/internal/domain/channel"
)

// prefetchCommand downloads a URL into the store and prints its content hash.
const prefetchCommand = "nix-prefetch-url"

// errEmptyHash is returned when the prefetch tool produced no usable hash.
var errEmptyHash = errors.New("prefetch produced an empty hash")

// Prefetcher obtains the content hash of a release archive via nix-prefetch-url.
type Prefetcher struct {
	// command is the prefetch executable, replaceable in tests.
	command string
}

// NewPrefetcher creates a prefetcher using the standard Nix tooling.
func NewPrefetcher() *Prefetcher {
	return &Prefetcher{
		command: prefetchCommand,
	}
}

// Fetch downloads the archive at the URL and returns its content hash.
// The tool prints progress to stderr and the hash as the last line of stdout.
// The call blocks until the download completes; there is no timeout.
func (p *Prefetcher) Fetch(ctx context.Context, archiveURL string) (string, error) {
	output, err := exec.CommandContext(ctx, p.command, archiveURL).Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", p.command, archiveURL, err)
	}

	hash := channel.SanitizeToken(lastNonEmptyLine(string(output)))
	if hash == "" {
		return "", fmt.Errorf("%s %s: %w", p.command, archiveURL, errEmptyHash)
	}

	return hash, nil
}

// lastNonEmptyLine returns the final non-blank line of the output.
func lastNonEmptyLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}

	return ""
}
