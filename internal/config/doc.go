// Package config defines updater settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type names the registry, the published package, the pinned
// sources file and the release channels tracked in it.
package config
