package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing package name.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Bad registry URL.
	cfg = &Config{
		Package:     "typescript",
		RegistryURL: "registry.example.com/no-scheme",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Channel name outside the structural-match alphabet.
	cfg = &Config{
		Package:  "typescript",
		Channels: []string{"latest", "beta channel"},
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Duplicate channel name.
	cfg = &Config{
		Package:  "typescript",
		Channels: []string{"latest", "latest"},
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Default channel missing from a custom channel list.
	cfg = &Config{
		Package:  "typescript",
		Channels: []string{"stable", "nightly"},
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay with defaults filled in.
	cfg = &Config{
		Package: "typescript",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultRegistryURL, cfg.RegistryURL)
	require.Equal(t, DefaultSourcesFilename, cfg.SourcesFile)
	require.Equal(t, DefaultChannels, cfg.Channels)
	require.Equal(t, DefaultChannelName, cfg.DefaultChannel)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		RegistryURL:    "https://registry.example.com",
		Package:        "@acme/cli",
		SourcesFile:    "pkgs/sources.nix",
		BuildTarget:    ".#cli",
		Channels:       []string{"latest", "beta"},
		DefaultChannel: "latest",
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoadMissingFile ensures a readable error is returned for an absent settings file.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.ErrorContains(t, err, "read settings")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestDefault ensures the built-in defaults pass validation unchanged.
func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultPackageName, cfg.Package)
	require.Equal(t, DefaultChannels, cfg.Channels)

	// The defaults are a copy: mutating them must not leak into the package vars.
	cfg.Channels[0] = "mutated"
	require.Equal(t, "latest", DefaultChannels[0])
}
