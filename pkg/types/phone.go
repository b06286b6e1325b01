package types

import (
	"regexp"
	"strings"
)

var indianMobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

// NormalizeIndianMobile strips separators and an optional +91/91/0 prefix and
// reports whether what remains is a 10-digit Indian mobile number.
func NormalizeIndianMobile(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", false
		}
	}
	digits := b.String()
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}
	if !indianMobilePattern.MatchString(digits) {
		return "", false
	}
	return digits, true
}
