package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// commonPasswords is matched case-insensitively after trimming.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password123": {},
	"123456":      {},
	"123456789":   {},
	"qwerty":      {},
	"qwerty123":   {},
	"11111111":    {},
	"letmein":     {},
	"taskflow":    {},
	"taskflow123": {},
}

// weakRules each report whether a trimmed, non-empty password is trivially
// guessable.
var weakRules = []func(s string) bool{
	singleRune,
	shortPIN,
	func(s string) bool {
		_, ok := commonPasswords[strings.ToLower(s)]
		return ok
	},
}

// Validate checks a new password against Policy. Length is counted in runes.
func (c Config) Validate(password string) error {
	switch n := utf8.RuneCountInString(password); {
	case n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case c.Policy.MaxLength > 0 && n > c.Policy.MaxLength:
		return ErrPasswordTooLong
	}
	if c.Policy.RejectVeryWeak && isVeryWeak(password) {
		return ErrWeakPassword
	}
	return nil
}

func isVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}
	for _, rule := range weakRules {
		if rule(s) {
			return true
		}
	}
	return false
}

func singleRune(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	return strings.Trim(s, string(first)) == ""
}

// shortPIN matches digit-only strings under twelve characters.
func shortPIN(s string) bool {
	if utf8.RuneCountInString(s) >= 12 {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
}
