package reconcile

import "strings"

// phoneSuffixLen is the number of trailing digits compared when matching
// callbacks by phone. Nine digits is a full Kenyan subscriber number
// without the country code or leading zero, so "254712345678",
// "0712345678" and "712345678" all share one suffix.
const phoneSuffixLen = 9

// NormalizePhone strips everything but digits.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneSuffix returns the trailing digits used for fuzzy matching, or ""
// when the number is too short to match safely.
func PhoneSuffix(raw string) string {
	digits := NormalizePhone(raw)
	if len(digits) < phoneSuffixLen {
		return ""
	}
	return digits[len(digits)-phoneSuffixLen:]
}
