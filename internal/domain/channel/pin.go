package channel

// Pin records the version and content hash a channel is pinned to.
type Pin struct {
	// Version is the published package version recorded for the channel.
	Version string
	// SHA256 is the content hash of the version's release archive.
	SHA256 string
}

// IsZero reports whether the pin carries neither a version nor a hash.
func (p Pin) IsZero() bool {
	return p.Version == "" && p.SHA256 == ""
}
