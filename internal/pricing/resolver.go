// Package pricing resolves the fair reference price of a billed service.
package pricing

import (
	"strings"

	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/normalize"
	"github.com/gyeh/billaudit/internal/tier"
)

// SourceLearned marks a price taken from the rate card average.
const SourceLearned = "learned"

// Resolution explains where a standard price came from.
type Resolution struct {
	Price    float64
	Source   string // SourceLearned or the lowercased tier category, e.g. "room"
	Tier     tier.CityTier
	Category tier.Category // empty when Source is SourceLearned
}

// Resolver combines the learned rate card with the static tier table.
type Resolver struct {
	table      tier.Table
	classifier *tier.Classifier
	rules      []Rule
}

// NewResolver builds a resolver. A nil rules slice uses DefaultRules.
func NewResolver(table tier.Table, classifier *tier.Classifier, rules []Rule) *Resolver {
	if rules == nil {
		rules = DefaultRules
	}
	return &Resolver{table: table, classifier: classifier, rules: rules}
}

// Resolve returns the standard price for serviceName billed in city.
func (r *Resolver) Resolve(serviceName, city string, card model.RateCard) float64 {
	return r.Lookup(serviceName, city, "", card).Price
}

// Lookup is Resolve with provenance. A non-empty forced tier replaces city
// classification on the table path.
func (r *Resolver) Lookup(serviceName, city string, forced tier.CityTier, card model.RateCard) Resolution {
	key := normalize.ServiceKey(serviceName)
	ct := forced
	if ct == "" {
		ct = r.classifier.Classify(city)
	}

	if avg, ok := card.AveragePriceFor(key); ok && avg > 0 {
		return Resolution{Price: avg, Source: SourceLearned, Tier: ct}
	}

	cat, _ := Categorize(r.rules, key)
	return Resolution{
		Price:    r.table.CeilingFor(cat, ct),
		Source:   strings.ToLower(string(cat)),
		Tier:     ct,
		Category: cat,
	}
}

// Classify exposes the resolver's city classifier.
func (r *Resolver) Classify(city string) tier.CityTier {
	return r.classifier.Classify(city)
}

// TierLabel returns the display label for ct.
func (r *Resolver) TierLabel(ct tier.CityTier) string {
	return r.table.Label(ct)
}
