package format

import "strings"

// DefaultAccountNumberLength is the canonical recipient identifier length
const DefaultAccountNumberLength = 10

// PinLength is the number of digits in a confirmation PIN
const PinLength = 4

// digitsOnly drops every rune that is not an ASCII digit
func digitsOnly(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}

// CanonicalAccountNumber keeps digits only and truncates to length
func CanonicalAccountNumber(raw string, length int) string {
	digits := digitsOnly(raw)
	if length > 0 && len(digits) > length {
		return digits[:length]
	}
	return digits
}

// IsCompleteAccountNumber reports whether s is exactly length ASCII digits
func IsCompleteAccountNumber(s string, length int) bool {
	return len(s) == length && digitsOnly(s) == s
}

// MaskAccountNumber hides all but the last four digits
func MaskAccountNumber(s string) string {
	if len(s) <= 4 {
		return s
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// SanitizePin keeps digits only, capped at PinLength
func SanitizePin(raw string) string {
	digits := digitsOnly(raw)
	if len(digits) > PinLength {
		return digits[:PinLength]
	}
	return digits
}

// IsCompletePin reports whether pin is exactly PinLength digits
func IsCompletePin(pin string) bool {
	return len(pin) == PinLength && digitsOnly(pin) == pin
}
