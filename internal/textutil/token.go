package textutil

import "strings"

const unknownToken = "unknown"

// SanitizeToken maps an identifier onto [a-z0-9_-] so it can be used as a
// file name component. ASCII letters are lowercased; any other rune becomes
// '_'. Leading and trailing separators are stripped, and an empty result is
// reported as "unknown".
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case 'A' <= r && r <= 'Z':
			return r + 'a' - 'A'
		case 'a' <= r && r <= 'z', '0' <= r && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(value))
	if token = strings.Trim(token, "_-"); token == "" {
		return unknownToken
	}
	return token
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
