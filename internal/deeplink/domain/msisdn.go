package domain

import (
	"strings"

	customValidation "github.com/easymo/deeplinks/internal/validation"
)

// phoneSeparators are stripped before validation.
var phoneSeparators = strings.NewReplacer(" ", "", "\t", "", "-", "", ".", "", "(", "", ")", "")

// NormalizeMSISDN converts user-entered phone numbers into E.164. A leading
// "00" becomes "+", and a missing "+" is added. The second return value is
// false when the result is still not valid E.164.
func NormalizeMSISDN(raw string) (string, bool) {
	phone := phoneSeparators.Replace(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(phone, "00"):
		phone = "+" + phone[2:]
	case !strings.HasPrefix(phone, "+"):
		phone = "+" + phone
	}

	if !customValidation.IsE164(phone) {
		return "", false
	}
	return phone, true
}

// SameMSISDN reports whether two numbers normalize to the same E.164 value.
func SameMSISDN(a, b string) bool {
	na, okA := NormalizeMSISDN(a)
	nb, okB := NormalizeMSISDN(b)
	return okA && okB && na == nb
}
