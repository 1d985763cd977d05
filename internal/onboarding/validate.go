package onboarding

import (
	"regexp"
	"strings"
)

// MaxDisplayNameRunes is the longest display name kept; longer input is cut.
const MaxDisplayNameRunes = 30

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeDisplayName truncates name to MaxDisplayNameRunes runes.
func NormalizeDisplayName(name string) string {
	runes := []rune(name)
	if len(runes) > MaxDisplayNameRunes {
		runes = runes[:MaxDisplayNameRunes]
	}
	return string(runes)
}

// ValidDisplayName reports whether name is non-empty after trimming.
func ValidDisplayName(name string) bool {
	return strings.TrimSpace(name) != ""
}

// ValidEmail reports whether email has a local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
