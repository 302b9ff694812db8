package audit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/pricing"
	"github.com/gyeh/billaudit/internal/tier"
)

func newEngine(table tier.Table) *Engine {
	return NewEngine(pricing.NewResolver(table, tier.NewClassifier(nil), nil), 0)
}

func card(key string, avg float64) model.RateCard {
	return model.RateCard{key: {
		ServiceKey:   key,
		Observations: []model.PriceObservation{{Price: avg}},
		AveragePrice: avg,
	}}
}

func TestAudit_FlagThreshold(t *testing.T) {
	e := newEngine(tier.DefaultTable())
	rc := card("lab panel", 1000)

	cases := []struct {
		price   float64
		flagged bool
		savings float64
	}{
		{1500, false, 0},
		{1501, true, 501},
		{999, false, 0},
		{3000, true, 2000},
	}
	for _, c := range cases {
		res, err := e.Audit(model.Bill{City: "Mumbai", LineItems: []model.LineItem{{Service: "Lab Panel", Price: c.price}}}, rc)
		require.NoError(t, err)
		it := res.LineItems[0]
		assert.Equal(t, 1000.0, it.StandardPrice)
		assert.Equal(t, c.flagged, it.Flagged, "price %v", c.price)
		assert.Equal(t, c.savings, it.Savings, "price %v", c.price)
		assert.Equal(t, c.savings, res.PotentialSavings)
	}
}

func TestAudit_UpstreamSuspiciousIsOred(t *testing.T) {
	e := newEngine(tier.DefaultTable())

	res, err := e.Audit(model.Bill{
		City: "Jaipur",
		LineItems: []model.LineItem{
			{Service: "Oxygen Consumables", Price: 500, Suspicious: true},
			{Service: "Room Rent", Price: 4000, Suspicious: true},
			{Service: "Consultation", Price: 700},
		},
	}, model.RateCard{})
	require.NoError(t, err)

	// Below standard but flagged upstream: flagged, no negative savings.
	assert.True(t, res.LineItems[0].Flagged)
	assert.Equal(t, 0.0, res.LineItems[0].Savings)

	// Tier-2 room ceiling 2500; suspicious and above standard.
	assert.True(t, res.LineItems[1].Flagged)
	assert.Equal(t, 1500.0, res.LineItems[1].Savings)

	assert.False(t, res.LineItems[2].Flagged)
	assert.Equal(t, 1500.0, res.PotentialSavings)
}

func TestAudit_SavingsNonNegative(t *testing.T) {
	e := newEngine(tier.DefaultTable())
	bill := model.Bill{City: "Delhi", LineItems: []model.LineItem{
		{Service: "ICU Charges", Price: 20000},
		{Service: "ICU Charges", Price: 100, Suspicious: true},
		{Service: "MRI Scan", Price: 7000},
		{Service: "Gloves", Price: 0},
		{Service: "Ward Bed", Price: 12000},
	}}
	res, err := e.Audit(bill, model.RateCard{})
	require.NoError(t, err)
	for _, it := range res.LineItems {
		assert.GreaterOrEqual(t, it.Savings, 0.0, it.Service)
		if it.Savings > 0 {
			assert.True(t, it.Flagged, it.Service)
		}
	}
	assert.Equal(t, 12000.0+8000.0, res.PotentialSavings)
}

func TestAudit_Deterministic(t *testing.T) {
	e := newEngine(tier.DefaultTable())
	bill := model.Bill{City: "Pune", LineItems: []model.LineItem{
		{Service: "Room Rent", Price: 9000},
		{Service: "Consultation", Price: 1200},
	}}
	rc := card("consultation", 600)

	first, err := e.Audit(bill, rc)
	require.NoError(t, err)
	second, err := e.Audit(bill, rc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAudit_DoesNotMutateInput(t *testing.T) {
	e := newEngine(tier.DefaultTable())
	items := []model.LineItem{{Service: "Room Rent", Price: 9000}}
	_, err := e.Audit(model.Bill{City: "Pune", LineItems: items}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, items[0].StandardPrice)
	assert.False(t, items[0].Flagged)
}

func TestAudit_TotalsAndTier(t *testing.T) {
	e := newEngine(tier.DefaultTable())
	bill := model.Bill{
		HospitalName: "City Care",
		City:         "Mumbai",
		LineItems: []model.LineItem{
			{Service: "Room Rent", Price: 6000},
			{Service: "Consultation", Price: 700},
		},
	}

	res, err := e.Audit(bill, model.RateCard{})
	require.NoError(t, err)
	assert.Equal(t, 6700.0, res.TotalAmount)
	assert.Equal(t, "Metro City Rates (High)", res.CityTier)
	assert.Equal(t, 1, res.LineItems[0].Quantity)
	assert.Equal(t, "room", res.LineItems[0].PriceSource)

	stated := 7000.0
	bill.TotalAmount = &stated
	res, err = e.Audit(bill, model.RateCard{})
	require.NoError(t, err)
	assert.Equal(t, 7000.0, res.TotalAmount)
}

func TestAudit_EmptyRateCardScenario(t *testing.T) {
	e := newEngine(tier.DefaultTable())
	bill := model.Bill{City: "Mumbai", LineItems: []model.LineItem{
		{Service: "Room Rent", Price: 6000},
		{Service: "Consultation", Price: 700},
	}}

	res, err := e.Audit(bill, model.RateCard{})
	require.NoError(t, err)
	assert.Equal(t, 4000.0, res.LineItems[0].StandardPrice)
	assert.False(t, res.LineItems[0].Flagged, "ratio exactly 1.5 is not flagged")
	assert.Equal(t, 1500.0, res.LineItems[1].StandardPrice)
	assert.False(t, res.LineItems[1].Flagged)
	assert.Equal(t, 0.0, res.PotentialSavings)
}

func TestAudit_GovernmentSchemeTier(t *testing.T) {
	e := newEngine(tier.DefaultTable())
	res, err := e.Audit(model.Bill{
		City:      "Mumbai",
		Tier:      "government_scheme",
		LineItems: []model.LineItem{{Service: "Consultation", Price: 700}},
	}, model.RateCard{})
	require.NoError(t, err)
	assert.Equal(t, "Govt Scheme Rates", res.CityTier)
	assert.Equal(t, 350.0, res.LineItems[0].StandardPrice)
	assert.True(t, res.LineItems[0].Flagged)
	assert.Equal(t, 350.0, res.LineItems[0].Savings)
}

func TestAudit_IndeterminateStandardPrice(t *testing.T) {
	table := tier.DefaultTable()
	table[tier.Tier2].Ceilings[tier.Consultation] = 0
	e := newEngine(table)

	res, err := e.Audit(model.Bill{City: "Jaipur", LineItems: []model.LineItem{
		{Service: "Dressing", Price: 5000},
		{Service: "Dressing Kit", Price: 5000, Suspicious: true},
	}}, model.RateCard{})
	require.NoError(t, err)

	assert.True(t, res.LineItems[0].Indeterminate)
	assert.False(t, res.LineItems[0].Flagged)
	assert.True(t, res.LineItems[1].Indeterminate)
	assert.True(t, res.LineItems[1].Flagged)
	assert.Equal(t, 0.0, res.LineItems[1].Savings)
}

func TestAudit_MalformedInput(t *testing.T) {
	e := newEngine(tier.DefaultTable())

	cases := map[string]model.Bill{
		"missing line items": {City: "Mumbai"},
		"blank service":      {LineItems: []model.LineItem{{Service: "Room", Price: 1}, {Service: "  ", Price: 2}}},
		"negative price":     {LineItems: []model.LineItem{{Service: "Room", Price: -1}}},
		"unknown tier":       {Tier: "rural", LineItems: []model.LineItem{}},
	}
	for name, bill := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := e.Audit(bill, model.RateCard{})
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrMalformedBill))
			var ie *model.InputError
			assert.True(t, errors.As(err, &ie))
		})
	}
}

func TestAudit_EmptyList(t *testing.T) {
	e := newEngine(tier.DefaultTable())
	res, err := e.Audit(model.Bill{City: "Mumbai", LineItems: []model.LineItem{}}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.LineItems)
	assert.Equal(t, 0.0, res.TotalAmount)
}
