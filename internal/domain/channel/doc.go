// Package channel contains core domain types for release-channel pinning.
//
// It defines Pin (the version+hash pair a channel is pinned to) and the
// SanitizeToken filter applied to every network-obtained token before it is
// written to the sources file or interpolated into a fetch URL.
package channel
