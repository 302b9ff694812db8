package tier

import (
	"strings"

	"github.com/gyeh/billaudit/internal/normalize"
)

// DefaultMetroCities are substrings that mark a city as METRO.
var DefaultMetroCities = []string{
	"mumbai", "delhi", "bangalore", "bengaluru", "chennai", "kolkata", "hyderabad", "pune",
}

// Classifier maps free-text city names to a tier.
type Classifier struct {
	metro []string
}

// NewClassifier builds a classifier over the given metro substrings. An empty
// list falls back to DefaultMetroCities.
func NewClassifier(metro []string) *Classifier {
	if len(metro) == 0 {
		metro = DefaultMetroCities
	}
	norm := make([]string, 0, len(metro))
	for _, m := range metro {
		if m = normalize.City(m); m != "" {
			norm = append(norm, m)
		}
	}
	return &Classifier{metro: norm}
}

// Classify returns METRO when the city contains any metro substring and TIER2
// otherwise, including for an empty name. GOVERNMENT_SCHEME is never returned.
func (c *Classifier) Classify(city string) CityTier {
	name := normalize.City(city)
	if name == "" {
		return Tier2
	}
	for _, m := range c.metro {
		if strings.Contains(name, m) {
			return Metro
		}
	}
	return Tier2
}
