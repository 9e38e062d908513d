package validation

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

const (
	// MaxTextLength bounds free-text fields such as notes and reasons.
	MaxTextLength = 4000
	// MaxNameLength bounds short labels such as vendor and project names.
	MaxNameLength = 200

	accessCodeLength   = 8
	accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var (
	// EmailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidPassword checks password strength
func IsValidPassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}
	if len(password) > 128 {
		return false, "Password must be at most 128 characters"
	}

	var hasLetter, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if !hasLetter {
		return false, "Password must contain at least one letter"
	}
	if !hasNumber {
		return false, "Password must contain at least one number"
	}

	return true, ""
}

// NormalizeAccessCode uppercases a typed code and drops the spaces and dashes
// people add when reading it aloud.
func NormalizeAccessCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return unicode.ToUpper(r)
	}, code)
}

// IsValidAccessCode reports whether a normalized code could have been issued.
func IsValidAccessCode(code string) bool {
	if len(code) != accessCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(accessCodeAlphabet, r) {
			return false
		}
	}
	return true
}

// IsValidAmount accepts finite, non-negative money amounts.
func IsValidAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// TruncateString truncates s to at most maxLen runes.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// CleanText trims, sanitizes and bounds user-entered text.
func CleanText(s string, maxLen int) string {
	return TruncateString(SanitizeString(strings.TrimSpace(s)), maxLen)
}
