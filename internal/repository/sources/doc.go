// Package sources implements persistence for channel pins.
//
// The FileRepository patches the Nix sources file in place: it locates the
// `tag = { ... }` block with a structural match and replaces only the
// version and sha256 values inside it, leaving every other byte of the
// document untouched. Downstream tooling diffs this file, so fidelity of the
// surrounding text matters as much as the values themselves.
package sources
