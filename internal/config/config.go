package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/nix-npm-updater/internal/domain/channel"
)

// Config holds registry and flake parameters shared by the updater commands.
type Config struct {
	// RegistryURL is the base URL of the npm-style registry hosting the package.
	RegistryURL string `yaml:"registry_url"`
	// Package is the name of the published package, possibly scoped (e.g. "@acme/cli").
	Package string `yaml:"package"`
	// SourcesFile is the path to the Nix file pinning version+hash pairs per channel.
	SourcesFile string `yaml:"sources_file"`
	// BuildTarget is the flake installable built to verify an update.
	// Empty means the flake's default package.
	BuildTarget string `yaml:"build_target"`
	// Channels is the ordered list of release channels tracked in the sources file.
	Channels []string `yaml:"channels"`
	// DefaultChannel is the channel used when no tag is requested.
	DefaultChannel string `yaml:"default_channel"`
}

const (
	// DefaultConfigFilename is the default filename for updater settings.
	DefaultConfigFilename = "update-settings.yaml"

	// DefaultSourcesFilename is the default filename for the pinned sources file.
	DefaultSourcesFilename = "sources.nix"

	// DefaultRegistryURL is the registry queried when none is configured.
	DefaultRegistryURL = "https://registry.npmjs.org"

	// DefaultPackageName is the package tracked when none is configured.
	DefaultPackageName = "typescript"

	// DefaultChannelName is the channel used when no tag is requested.
	DefaultChannelName = "latest"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// DefaultChannels is the channel list used when none is configured.
//
//nolint:gochecknoglobals // A default slice cannot be declared as a constant.
var DefaultChannels = []string{"latest", "alpha", "beta", "native"}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errPackageNameRequired is returned when the package name is missing.
	errPackageNameRequired = errors.New("package name must be provided")
	// errChannelNameInvalid is returned when a channel name contains characters
	// outside the structural-match alphabet.
	errChannelNameInvalid = errors.New("invalid channel name")
	// errChannelDuplicated is returned when the same channel is listed twice.
	errChannelDuplicated = errors.New("duplicate channel name")
	// errDefaultChannelUnknown is returned when the default channel is not listed.
	errDefaultChannelUnknown = errors.New("default channel is not in the channel list")
)

// Default returns settings with every field at its built-in default, so the
// tool runs without a settings file when dropped into the flake repository.
func Default() *Config {
	return &Config{
		RegistryURL:    DefaultRegistryURL,
		Package:        DefaultPackageName,
		SourcesFile:    DefaultSourcesFilename,
		Channels:       append([]string(nil), DefaultChannels...),
		DefaultChannel: DefaultChannelName,
	}
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
// Missing optional fields are filled with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Package == "" {
		return errPackageNameRequired
	}

	// Set default registry if not specified.
	if cfg.RegistryURL == "" {
		cfg.RegistryURL = DefaultRegistryURL
	}

	if _, err := url.ParseRequestURI(cfg.RegistryURL); err != nil {
		return fmt.Errorf("invalid registry URL: %w", err)
	}

	// Set default sources file if not specified.
	if cfg.SourcesFile == "" {
		cfg.SourcesFile = DefaultSourcesFilename
	}

	if len(cfg.Channels) == 0 {
		cfg.Channels = append([]string(nil), DefaultChannels...)
	}

	seen := make(map[string]struct{}, len(cfg.Channels))

	for _, name := range cfg.Channels {
		if !channel.ValidTag(name) {
			return fmt.Errorf("%w: %q", errChannelNameInvalid, name)
		}

		if _, found := seen[name]; found {
			return fmt.Errorf("%w: %q", errChannelDuplicated, name)
		}

		seen[name] = struct{}{}
	}

	if cfg.DefaultChannel == "" {
		cfg.DefaultChannel = DefaultChannelName
	}

	if _, found := seen[cfg.DefaultChannel]; !found {
		return fmt.Errorf("%w: %q", errDefaultChannelUnknown, cfg.DefaultChannel)
	}

	return nil
}
