// Package updater implements the channel update procedure behind the CLI.
//
// A run selects one mode: check a single channel, check all channels,
// update all channels to their latest published versions, or pin one
// channel to an explicitly requested version. Checks compare the pinned
// version in the sources file against the registry's distribution tag.
// Updates fetch the release archive's content hash, rewrite the channel's
// block in place, and verify the flake still builds afterwards.
package updater
