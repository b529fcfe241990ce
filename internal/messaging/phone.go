package messaging

import (
	"regexp"
	"strings"
)

const brazilCountryCode = "55"

var phoneDigitsRe = regexp.MustCompile(`\d+`)

// NormalizeE164 returns +<digits>. National Brazilian numbers (area code plus
// 8 or 9 digits, optionally with a trunk 0) get the 55 country code.
func NormalizeE164(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(value, "+") {
		return "+" + digits
	}
	digits = strings.TrimPrefix(digits, "0")
	if len(digits) == 10 || len(digits) == 11 {
		digits = brazilCountryCode + digits
	}
	return "+" + digits
}

func sanitizePhone(value string) string {
	return strings.Join(phoneDigitsRe.FindAllString(value, -1), "")
}
