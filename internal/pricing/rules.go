package pricing

import (
	"strings"

	"github.com/gyeh/billaudit/internal/tier"
)

// Rule maps a service name to a category when it contains any keyword.
type Rule struct {
	Keywords []string
	Category tier.Category
}

// Match reports whether the (already lowercased) service key hits the rule.
func (r Rule) Match(key string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// DefaultRules is evaluated top to bottom; the first match wins.
var DefaultRules = []Rule{
	{Keywords: []string{"room", "ward"}, Category: tier.Room},
	{Keywords: []string{"consultation", "opd"}, Category: tier.Consultation},
	{Keywords: []string{"icu"}, Category: tier.ICU},
	{Keywords: []string{"mri", "scan"}, Category: tier.Imaging},
}

// FallbackCategory is used when no rule matches.
const FallbackCategory = tier.Consultation

// Categorize returns the category of the first matching rule, or
// FallbackCategory with matched=false.
func Categorize(rules []Rule, key string) (c tier.Category, matched bool) {
	for _, r := range rules {
		if r.Match(key) {
			return r.Category, true
		}
	}
	return FallbackCategory, false
}
