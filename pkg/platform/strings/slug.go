// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
	"unicode"
)

// Slugify lowercases s and collapses every run of characters outside a-z and
// 0-9 into a single hyphen, trimming hyphens at either end.
//
// Example:
//
//	Slugify("Hackney North and Stoke Newington")
//	// Returns: "hackney-north-and-stoke-newington"
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLower(r) || unicode.IsDigit(r)) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// FirstNonEmpty returns the first value that is not blank after trimming,
// trimmed. It returns "" when every value is blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
