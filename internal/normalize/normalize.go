// Package normalize canonicalizes raw field values for equality comparison
// and validates common contact-field formats. Normalized values are used for
// comparison only, never stored back onto a record.
package normalize

import (
	"regexp"
	"strings"
)

var (
	phoneSeparators = regexp.MustCompile(`[\s\-().]`)
	phonePattern    = regexp.MustCompile(`^\+?1?\d{10}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	zipPattern      = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// Value canonicalizes a raw field value: trim, uppercase, and strip dashes,
// spaces, and parentheses. Empty input stays empty.
func Value(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	r := strings.NewReplacer("-", "", " ", "", "(", "", ")", "")
	return r.Replace(s)
}

// ValidPhone reports whether the phone number, after stripping separators,
// is exactly ten digits with an optional leading 1.
func ValidPhone(phone string) bool {
	cleaned := phoneSeparators.ReplaceAllString(phone, "")
	return phonePattern.MatchString(cleaned)
}

// ValidEmail reports whether the value has the standard local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidZip reports whether the value is a five-digit US zip, optionally with
// a dash and four more digits.
func ValidZip(zip string) bool {
	return zipPattern.MatchString(zip)
}
