// Package registry implements a minimal client for npm-style package registries.
//
// The Client resolves a distribution tag to its published version via
// GET <base>/<package>/<tag> and derives the canonical archive URL for a
// version's release tarball.
package registry
