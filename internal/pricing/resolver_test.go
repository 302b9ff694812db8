package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/tier"
)

func newResolver() *Resolver {
	return NewResolver(tier.DefaultTable(), tier.NewClassifier(nil), nil)
}

func cardWith(key string, prices ...float64) model.RateCard {
	e := model.LedgerEntry{ServiceKey: key, LastUpdated: time.Now()}
	var sum float64
	for _, p := range prices {
		e.Observations = append(e.Observations, model.PriceObservation{Price: p})
		sum += p
	}
	e.AveragePrice = sum / float64(len(prices))
	return model.RateCard{key: e}
}

func TestResolve_TierFallback(t *testing.T) {
	r := newResolver()
	empty := model.RateCard{}

	cases := []struct {
		service, city string
		want          float64
	}{
		{"Room Rent", "Mumbai", 4000},
		{"General Ward", "Jaipur", 2500},
		{"Consultation", "Mumbai", 1500},
		{"OPD Visit", "Lucknow", 800},
		{"ICU Charges", "Chennai", 8000},
		{"MRI Brain", "Pune", 7000},
		{"CT Scan", "Indore", 4500},
		{"Paracetamol", "Delhi", 1500},
		{"Paracetamol", "", 800},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, r.Resolve(c.service, c.city, empty), "%s in %s", c.service, c.city)
	}
}

func TestResolve_RulePriority(t *testing.T) {
	r := newResolver()
	// "icu room" matches the room rule before the icu rule.
	assert.Equal(t, 4000.0, r.Resolve("ICU Room", "Mumbai", nil))
	// "opd scan" hits consultation before imaging.
	assert.Equal(t, 1500.0, r.Resolve("OPD Scan Review", "Mumbai", nil))
}

func TestResolve_LearnedOverridesTable(t *testing.T) {
	r := newResolver()

	assert.Equal(t, 8000.0, r.Resolve("ICU Charges", "Chennai", model.RateCard{}))

	card := cardWith("icu charges", 6000)
	assert.Equal(t, 6000.0, r.Resolve("ICU Charges", "Chennai", card))
	assert.Equal(t, 6000.0, r.Resolve("  icu   CHARGES ", "Jaipur", card))
}

func TestResolve_NonPositiveAverageIgnored(t *testing.T) {
	r := newResolver()
	card := cardWith("icu charges", 0)
	assert.Equal(t, 8000.0, r.Resolve("ICU Charges", "Chennai", card))
}

func TestLookup_ForcedTier(t *testing.T) {
	r := newResolver()

	res := r.Lookup("Consultation", "Mumbai", tier.GovernmentScheme, model.RateCard{})
	assert.Equal(t, 350.0, res.Price)
	assert.Equal(t, tier.GovernmentScheme, res.Tier)
	assert.Equal(t, "consultation", res.Source)

	res = r.Lookup("Consultation", "Mumbai", "", cardWith("consultation", 700))
	assert.Equal(t, SourceLearned, res.Source)
	assert.Equal(t, tier.Metro, res.Tier)
}

func TestResolve_Deterministic(t *testing.T) {
	r := newResolver()
	card := cardWith("room rent", 3000, 5000)
	first := r.Resolve("Room Rent", "Mumbai", card)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Resolve("Room Rent", "Mumbai", card))
	}
}
