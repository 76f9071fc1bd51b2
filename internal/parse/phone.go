package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	nonDigitRe = regexp.MustCompile(`[^0-9]`)
	mobileRe   = regexp.MustCompile(`^01[0-9]\d{8}$`)
)

// NormalizePhone strips separators from a Korean mobile number and checks it
// has the 01X-XXXX-XXXX shape. A +82 country prefix is folded back to 0.
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	digits := nonDigitRe.ReplaceAllString(s, "")
	if strings.HasPrefix(s, "+82") || (strings.HasPrefix(digits, "82") && len(digits) == 12) {
		digits = "0" + strings.TrimPrefix(digits, "82")
	}
	if !mobileRe.MatchString(digits) {
		return "", fmt.Errorf("invalid mobile number: %q", raw)
	}
	return digits, nil
}

// FormatPhone renders a normalized number as 010-1234-5678.
func FormatPhone(digits string) string {
	if len(digits) != 11 {
		return digits
	}
	return digits[:3] + "-" + digits[3:7] + "-" + digits[7:]
}

// ValidBirthDate reports whether s is a calendar date written YYYY-MM-DD.
// Empty is allowed.
func ValidBirthDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}
