package triage

import "strings"

// NormalizePhone strips everything but digits. All customer lookups and
// storage use this form.
func NormalizePhone(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// InternationalPhone coerces a normalized number into the relay's expected
// international format by prefixing the default country code when missing.
// This is a business convention of the relay account, not a protocol rule.
func InternationalPhone(phone, countryCode string) string {
	p := NormalizePhone(phone)
	if countryCode == "" || strings.HasPrefix(p, countryCode) {
		return p
	}
	return countryCode + p
}
