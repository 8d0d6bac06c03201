package canon

import (
	"regexp"
	"strings"
)

var rePunct = regexp.MustCompile(`[^A-Za-z0-9\s]`)

// Key normalizes a free-text location into a stable geocode cache key.
// Listing filtering compares location strings exactly; the key is only used
// so that "Harbord & Spadina" and "harbord  spadina" share one cache slot.
func Key(location string) string {
	s := strings.ToLower(strings.TrimSpace(location))
	s = rePunct.ReplaceAllString(s, " ")
	return collapseSpaces(s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
