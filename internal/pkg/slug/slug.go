// Package slug turns titles into URL-safe slugs and keeps them unique within a
// table column.
package slug

import (
	"regexp"
	"strings"
)

const space = `\s\v\p{Z}\x{feff}`

var (
	// disallowed matches anything that is not an ASCII word char, whitespace, or hyphen.
	disallowed = regexp.MustCompile(`[^\w` + space + `-]`)
	// separators collapses whitespace, underscore and hyphen runs into one hyphen.
	separators = regexp.MustCompile(`[` + space + `_-]+`)
	valid      = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Red Fox!" -> "red-fox". Titles without any ASCII letters or digits
// produce "".
func Generate(s string) string {
	result := strings.TrimSpace(strings.ToLower(s))
	result = disallowed.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Valid reports whether s is a non-empty string of lowercase letters, digits
// and hyphens.
func Valid(s string) bool {
	return valid.MatchString(s)
}
