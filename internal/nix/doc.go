// Package nix wraps the external Nix tooling the updater shells out to:
// nix-prefetch-url to obtain content hashes of release archives and
// nix build to verify the flake still builds after an update.
package nix
