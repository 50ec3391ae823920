package channel

import "strings"

// SanitizeToken strips every character outside [A-Za-z0-9._-] from the token.
// Any version or hash obtained from the network must pass through this filter
// before it is written to the sources file or used inside a fetch URL, so that
// control characters and pattern metacharacters never reach either.
func SanitizeToken(token string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, token)
}

// ValidTag reports whether the name consists only of characters that survive
// SanitizeToken. The structural block match in the sources file relies on this.
func ValidTag(name string) bool {
	return name != "" && SanitizeToken(name) == name
}
