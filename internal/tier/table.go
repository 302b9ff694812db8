// Package tier holds the static ceiling-price table and the city classifier
// that picks a row of it.
package tier

import (
	"fmt"
	"strings"
)

// CityTier is a coarse cost-of-living class used to pick default ceilings.
type CityTier string

const (
	Metro            CityTier = "METRO"
	Tier2            CityTier = "TIER2"
	GovernmentScheme CityTier = "GOVERNMENT_SCHEME"
)

// AllTiers lists the tiers in table order.
var AllTiers = []CityTier{Metro, Tier2, GovernmentScheme}

// Parse accepts a tier name in any case, with "-" or " " for "_".
func Parse(s string) (CityTier, error) {
	n := strings.ToUpper(strings.TrimSpace(s))
	n = strings.NewReplacer("-", "_", " ", "_").Replace(n)
	switch n {
	case "METRO", "TIER1", "TIER_1":
		return Metro, nil
	case "TIER2", "TIER_2":
		return Tier2, nil
	case "GOVERNMENT_SCHEME", "GOVT_SCHEME", "GOVT":
		return GovernmentScheme, nil
	}
	return "", fmt.Errorf("unknown city tier %q", s)
}

// Category is a billable service category with a per-tier ceiling.
type Category string

const (
	Room         Category = "ROOM"
	Consultation Category = "CONSULTATION"
	ICU          Category = "ICU"
	Imaging      Category = "IMAGING"
)

// AllCategories lists the categories in table order.
var AllCategories = []Category{Room, Consultation, ICU, Imaging}

// Rates is one row of the table.
type Rates struct {
	Label    string
	Ceilings map[Category]float64
}

// Table maps each tier to its rates. Treat it as immutable once built.
type Table map[CityTier]Rates

// DefaultTable returns the built-in ceilings (INR).
func DefaultTable() Table {
	return Table{
		Metro: {
			Label:    "Metro City Rates (High)",
			Ceilings: map[Category]float64{Room: 4000, Consultation: 1500, ICU: 8000, Imaging: 7000},
		},
		Tier2: {
			Label:    "Tier-2 City Rates (Moderate)",
			Ceilings: map[Category]float64{Room: 2500, Consultation: 800, ICU: 5000, Imaging: 4500},
		},
		GovernmentScheme: {
			Label:    "Govt Scheme Rates",
			Ceilings: map[Category]float64{Room: 1000, Consultation: 350, ICU: 2000, Imaging: 2500},
		},
	}
}

// CeilingFor returns the ceiling for category in tier, or 0 if the table has
// no such cell.
func (t Table) CeilingFor(c Category, ct CityTier) float64 {
	return t[ct].Ceilings[c]
}

// Label returns the display label of a tier.
func (t Table) Label(ct CityTier) string {
	if r, ok := t[ct]; ok && r.Label != "" {
		return r.Label
	}
	return string(ct)
}

// WithOverrides returns a copy of t with the given ceilings replaced.
// Keys are tier and category names as accepted by Parse and ParseCategory.
func (t Table) WithOverrides(over map[string]map[string]float64) (Table, error) {
	out := make(Table, len(t))
	for ct, r := range t {
		ceil := make(map[Category]float64, len(r.Ceilings))
		for c, v := range r.Ceilings {
			ceil[c] = v
		}
		out[ct] = Rates{Label: r.Label, Ceilings: ceil}
	}
	for tierName, cells := range over {
		ct, err := Parse(tierName)
		if err != nil {
			return nil, err
		}
		for catName, v := range cells {
			c, err := ParseCategory(catName)
			if err != nil {
				return nil, err
			}
			if v <= 0 {
				return nil, fmt.Errorf("ceiling for %s/%s must be positive, got %v", ct, c, v)
			}
			out[ct].Ceilings[c] = v
		}
	}
	return out, nil
}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllCategories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown service category %q", s)
}
