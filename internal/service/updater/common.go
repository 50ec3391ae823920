package updater

import (
	"context"
	"fmt"
)

// VersionSource resolves distribution tags to published versions and derives
// release archive URLs. *registry.Client implements it.
type VersionSource interface {
	LatestVersion(ctx context.Context, tag string) (string, error)
	TarballURL(version string) (string, error)
}

// HashFetcher obtains the content hash of a release archive.
// *nix.Prefetcher implements it.
type HashFetcher interface {
	Fetch(ctx context.Context, archiveURL string) (string, error)
}

// BuildVerifier checks that the flake still builds. *nix.Builder implements it.
type BuildVerifier interface {
	Verify(ctx context.Context) error
}

// displayVersion renders a pinned version for output, naming the empty case.
func displayVersion(v string) string {
	if v == "" {
		return "none"
	}

	return v
}

// followUpCommand is the exact invocation that applies the reported update.
func followUpCommand(tag, version string) string {
	return fmt.Sprintf("update %s --tag %s", version, tag)
}

// printf writes a user-facing result line.
func (r *runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}
