package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// ServiceKey lowercases, collapses whitespace, and trims a service name so
// that "MRI Scan" and "  mri   scan " share one ledger entry. It is idempotent.
func ServiceKey(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}
	return multiSpace.ReplaceAllString(strings.ToLower(s), " ")
}

// City returns a trimmed, lowercased city name for matching.
func City(name string) string {
	return ServiceKey(name)
}
