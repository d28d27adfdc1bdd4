package helpers

import "strings"

// MaskPAN keeps the BIN and last four digits of a card number.
func MaskPAN(pan string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, pan)
	if len(digits) < 12 {
		return strings.Repeat("*", len(digits))
	}
	return digits[:6] + strings.Repeat("*", len(digits)-10) + digits[len(digits)-4:]
}

// NormalizePAN strips spaces and dashes from a card number.
func NormalizePAN(pan string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(pan)
}
