package types

import (
	"regexp"
	"strconv"
)

// zipPattern matches the first five-digit run of a zip code string, which
// accepts ZIP+4 ("60601-1234") and padded values alike.
var zipPattern = regexp.MustCompile(`\d{5}`)

// ParseZip normalizes a zip code string to its integer form.
// Returns false when no five-digit run is present.
func ParseZip(s string) (int, bool) {
	m := zipPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}
