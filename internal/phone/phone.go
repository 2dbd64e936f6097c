// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package phone normalizes Indian phone numbers to the canonical
// +91XXXXXXXXXX form before they are hashed or encrypted. Every phone number
// entering the system passes through Normalize exactly once, so equal numbers
// always produce equal lookup hashes.
package phone

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// ErrInvalid is returned when the input cannot be normalized to a valid
// Indian number (+91 followed by 10 digits).
var ErrInvalid = errors.New("phone number must be an Indian number with country code +91 followed by 10 digits")

var canonical = regexp.MustCompile(`^\+91\d{10}$`)

// Normalize converts user input to the canonical +91XXXXXXXXXX form.
// Accepts a bare 10-digit number, a 91-prefixed 12-digit number, or any
// formatting variation thereof (spaces, dashes, leading +).
func Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrInvalid
	}

	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	var normalized string
	switch {
	case len(digits) == 10:
		normalized = "+91" + digits
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		normalized = "+" + digits
	default:
		normalized = "+" + digits
	}

	if !canonical.MatchString(normalized) {
		return "", ErrInvalid
	}
	return normalized, nil
}

// Mask renders a number as ******1234 for user-facing hints. The full number
// is never echoed back to clients.
func Mask(number string) string {
	if number == "" {
		return ""
	}
	var digits []rune
	for _, r := range number {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return "******"
	}
	return "******" + string(digits[len(digits)-4:])
}
