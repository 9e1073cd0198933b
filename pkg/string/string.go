package string

import "strings"

// TrimStrings trims surrounding whitespace in place.
func TrimStrings(ss ...*string) {
	for _, s := range ss {
		*s = strings.TrimSpace(*s)
	}
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
