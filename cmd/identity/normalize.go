package identity

import "strings"

// NormalizeUsername performs case-insensitive canonicalization.
// Only trim + lower-case for now; unicode confusables are not folded.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
