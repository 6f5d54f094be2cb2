package domain

import "strings"

// cleanPhone strips spaces, dashes, dots and parentheses.
func cleanPhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, phone)
}

// ValidPhone reports whether phone is 10-15 digits, optionally prefixed
// with '+', ignoring common separators.
func ValidPhone(phone string) bool {
	cleaned := strings.TrimPrefix(cleanPhone(phone), "+")
	if len(cleaned) < 10 || len(cleaned) > 15 {
		return false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizePhone reduces a phone number to digits with an optional leading
// '+', the canonical form for uniqueness checks and lookups.
func NormalizePhone(phone string) string {
	cleaned := cleanPhone(strings.TrimSpace(phone))
	if strings.HasPrefix(cleaned, "+") {
		return "+" + strings.ReplaceAll(cleaned[1:], "+", "")
	}
	return cleaned
}

// PhoneE164 formats a phone number for SMS delivery. Numbers without a
// country code get +91 when 10 digits long, +1 otherwise, matching the
// delivery service's expectations.
func PhoneE164(phone string) string {
	cleaned := NormalizePhone(phone)
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "91") && len(cleaned) == 12 {
		return "+" + cleaned
	}
	if len(cleaned) == 10 {
		return "+91" + cleaned
	}
	return "+1" + cleaned
}
