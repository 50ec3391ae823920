package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/oshokin/nix-npm-updater/internal/config"
	"github.com/oshokin/nix-npm-updater/internal/domain/channel"
	"github.com/oshokin/nix-npm-updater/internal/logger"
	"github.com/oshokin/nix-npm-updater/internal/nix"
	"github.com/oshokin/nix-npm-updater/internal/registry"
	"github.com/oshokin/nix-npm-updater/internal/repository/sources"
)

var (
	// ErrUsage marks invocation errors; the CLI prints usage text when it sees it.
	ErrUsage = errors.New("invalid usage")

	// ErrUpdateAvailable reports that a check found a channel behind the registry.
	// The CLI maps it to a non-zero exit without an error banner.
	ErrUpdateAvailable = errors.New("a newer version is available")

	// errEmptyLatestVersion is returned when the registry resolves a tag to nothing usable.
	errEmptyLatestVersion = errors.New("registry returned an empty version")
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	// Empty falls back to the default file, or to built-in defaults when that is absent.
	ConfigPath string
	// Tag is the channel to operate on; empty means the configured default channel.
	Tag string
	// Version pins the channel to this explicit version instead of the registry's latest.
	Version string
	// CheckOnly reports whether newer versions exist without updating anything.
	CheckOnly bool
	// All operates on every configured channel.
	All bool

	// Output receives user-facing result lines; defaults to standard output.
	Output io.Writer
	// Registry overrides the registry client built from configuration, useful for tests.
	Registry VersionSource
	// Prefetcher overrides the nix-prefetch-url hash fetcher, useful for tests.
	Prefetcher HashFetcher
	// Builder overrides the nix build verifier, useful for tests.
	Builder BuildVerifier
	// Repository overrides the sources-file repository, useful for tests.
	Repository sources.Repository
}

// runner holds the collaborators resolved for a single run.
type runner struct {
	// cfg is the settings the run operates under.
	cfg *config.Config
	// out receives user-facing result lines.
	out io.Writer
	// pins reads and rewrites the channel blocks in the sources file.
	pins sources.Repository
	// remote resolves distribution tags against the package registry.
	remote VersionSource
	// hashes fetches content hashes for release archives.
	hashes HashFetcher
	// builder verifies the flake still builds after updates.
	builder BuildVerifier
	// tag is the channel a single-channel mode operates on.
	tag string
}

// Run executes the selected updater mode and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "update")

	r, err := newRunner(opts)
	if err != nil {
		return err
	}

	if err = r.run(ctx, opts); err != nil {
		// Usage problems and the check-mode outcome are not operational failures.
		if !errors.Is(err, ErrUsage) && !errors.Is(err, ErrUpdateAvailable) {
			logger.ErrorKV(ctx, "Update run failed", "error", err)
		}

		return err
	}

	return nil
}

// newRunner validates the mode selection and resolves collaborators from configuration.
func newRunner(opts *Options) (*runner, error) {
	if opts == nil {
		opts = &Options{}
	}

	if err := validateMode(opts); err != nil {
		return nil, err
	}

	cfg, err := loadSettings(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	tag := opts.Tag
	if tag == "" {
		tag = cfg.DefaultChannel
	}

	if !slices.Contains(cfg.Channels, tag) {
		return nil, fmt.Errorf("%w: unknown channel %q (configured: %s)",
			ErrUsage, tag, strings.Join(cfg.Channels, ", "))
	}

	r := &runner{
		cfg:     cfg,
		out:     opts.Output,
		pins:    opts.Repository,
		remote:  opts.Registry,
		hashes:  opts.Prefetcher,
		builder: opts.Builder,
		tag:     tag,
	}

	if r.out == nil {
		r.out = os.Stdout
	}

	if r.pins == nil {
		r.pins = sources.NewFileRepository(cfg.SourcesFile)
	}

	if r.remote == nil {
		r.remote = registry.NewClient(cfg.RegistryURL, cfg.Package)
	}

	if r.hashes == nil {
		r.hashes = nix.NewPrefetcher()
	}

	if r.builder == nil {
		r.builder = nix.NewBuilder(cfg.BuildTarget)
	}

	return r, nil
}

// validateMode rejects flag combinations that do not select exactly one mode.
// It runs before configuration loading, so a usage error never touches the
// network or the sources file.
func validateMode(opts *Options) error {
	switch {
	case opts.Version != "" && opts.All:
		return fmt.Errorf("%w: an explicit version cannot be combined with --all", ErrUsage)
	case opts.Version != "" && opts.CheckOnly:
		return fmt.Errorf("%w: --check does not take a version argument", ErrUsage)
	case opts.Tag != "" && opts.All:
		return fmt.Errorf("%w: --tag cannot be combined with --all", ErrUsage)
	case opts.Version == "" && !opts.CheckOnly && !opts.All:
		return fmt.Errorf("%w: a version argument is required unless --check or --all is given", ErrUsage)
	}

	return nil
}

// loadSettings loads the YAML settings. When no path is given and the default
// settings file does not exist, built-in defaults are used so the tool runs
// unconfigured inside the flake repository. An explicitly passed path must exist.
func loadSettings(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	cfg, err := config.Load("")
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}

	return cfg, err
}

// run dispatches to the selected mode.
func (r *runner) run(ctx context.Context, opts *Options) error {
	switch {
	case opts.CheckOnly && opts.All:
		return r.checkAll(ctx)
	case opts.CheckOnly:
		return r.checkOne(ctx, r.tag)
	case opts.All:
		return r.updateAll(ctx)
	default:
		return r.updateOne(ctx, r.tag, opts.Version)
	}
}

// checkOne reports whether the channel is behind the registry.
func (r *runner) checkOne(ctx context.Context, tag string) error {
	behind, err := r.checkChannel(ctx, tag)
	if err != nil {
		return err
	}

	if behind {
		return ErrUpdateAvailable
	}

	return nil
}

// checkAll reports the status of every configured channel in order.
// A single channel behind the registry makes the whole check report an update.
func (r *runner) checkAll(ctx context.Context) error {
	var behind int

	for _, tag := range r.cfg.Channels {
		channelBehind, err := r.checkChannel(ctx, tag)
		if err != nil {
			return err
		}

		if channelBehind {
			behind++
		}
	}

	if behind > 0 {
		return ErrUpdateAvailable
	}

	return nil
}

// checkChannel prints the channel status and reports whether the pinned
// version differs from the registry's current version for the tag.
func (r *runner) checkChannel(ctx context.Context, tag string) (bool, error) {
	current, err := r.pins.CurrentVersion(ctx, tag)
	if err != nil {
		return false, err
	}

	latest, err := r.latestVersion(ctx, tag)
	if err != nil {
		return false, err
	}

	logger.DebugKV(ctx, "Channel status", "channel", tag, "current", current, "latest", latest)

	if current == latest {
		r.printf("Channel %s is up to date at %s.\n", tag, current)
		return false, nil
	}

	r.printf("Channel %s: %s is available (currently %s).\n", tag, latest, displayVersion(current))
	r.printf("Run '%s' to apply.\n", followUpCommand(tag, latest))

	return true, nil
}

// updateAll updates every configured channel to its latest published version.
// The first failed fetch aborts the whole run; channels already rewritten in
// this run stay rewritten, there is no rollback.
func (r *runner) updateAll(ctx context.Context) error {
	var updated int

	for _, tag := range r.cfg.Channels {
		latest, err := r.latestVersion(ctx, tag)
		if err != nil {
			return err
		}

		current, err := r.pins.CurrentVersion(ctx, tag)
		if err != nil {
			return err
		}

		if current == latest {
			r.printf("Channel %s is already at %s.\n", tag, latest)
			continue
		}

		if err = r.applyPin(ctx, tag, latest); err != nil {
			return err
		}

		r.printf("Channel %s updated: %s -> %s.\n", tag, displayVersion(current), latest)

		updated++
	}

	if updated == 0 {
		r.printf("All channels are up to date.\n")
		return nil
	}

	return r.verifyBuild(ctx)
}

// updateOne pins a single channel to an explicitly requested version.
func (r *runner) updateOne(ctx context.Context, tag, rawVersion string) error {
	requested := channel.SanitizeToken(rawVersion)
	if requested == "" {
		return fmt.Errorf("%w: version %q is empty after sanitizing", ErrUsage, rawVersion)
	}

	// Basic format check only; the registry stays the authority on what exists.
	if _, err := goversion.NewVersion(requested); err != nil {
		return fmt.Errorf("%w: %q is not a valid version", ErrUsage, requested)
	}

	current, err := r.pins.CurrentVersion(ctx, tag)
	if err != nil {
		return err
	}

	if err = r.applyPin(ctx, tag, requested); err != nil {
		return err
	}

	r.printf("Channel %s updated: %s -> %s.\n", tag, displayVersion(current), requested)

	return r.verifyBuild(ctx)
}

// latestVersion resolves the tag via the registry and sanitizes the result
// before it is compared, interpolated into a URL, or written anywhere.
func (r *runner) latestVersion(ctx context.Context, tag string) (string, error) {
	latest, err := r.remote.LatestVersion(ctx, tag)
	if err != nil {
		return "", fmt.Errorf("channel %s: resolve latest version: %w", tag, err)
	}

	latest = channel.SanitizeToken(latest)
	if latest == "" {
		return "", fmt.Errorf("channel %s: %w", tag, errEmptyLatestVersion)
	}

	return latest, nil
}

// applyPin fetches the content hash for the version and rewrites the channel block.
func (r *runner) applyPin(ctx context.Context, tag, version string) error {
	archiveURL, err := r.remote.TarballURL(version)
	if err != nil {
		return fmt.Errorf("channel %s: archive URL for version %s: %w", tag, version, err)
	}

	logger.InfoKV(ctx, "Fetching archive hash", "channel", tag, "version", version, "url", archiveURL)

	hash, err := r.hashes.Fetch(ctx, archiveURL)
	if err != nil {
		return fmt.Errorf("channel %s: fetch hash for version %s: %w", tag, version, err)
	}

	pin := channel.Pin{
		Version: version,
		SHA256:  hash,
	}

	if err = r.pins.UpdatePin(ctx, tag, pin); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Channel pin rewritten", "channel", tag, "version", version, "sha256", hash)

	return nil
}

// verifyBuild runs the external build check after the sources file changed.
// A failure leaves the committed edits in place; the user fixes or reverts manually.
func (r *runner) verifyBuild(ctx context.Context) error {
	logger.InfoKV(ctx, "Verifying the flake builds", "target", r.cfg.BuildTarget)

	if err := r.builder.Verify(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Build verification passed")

	return nil
}
