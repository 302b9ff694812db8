// Package audit annotates a bill with standard prices, overpricing flags and
// savings.
package audit

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/normalize"
	"github.com/gyeh/billaudit/internal/pricing"
	"github.com/gyeh/billaudit/internal/tier"
)

// DefaultFlagRatio flags an item charged at more than 150% of its standard price.
const DefaultFlagRatio = 1.5

// Engine is stateless; the rate card is passed to every call.
type Engine struct {
	resolver *pricing.Resolver
	ratio    decimal.Decimal
}

// NewEngine returns an engine flagging items above flagRatio × standard price.
// A non-positive ratio uses DefaultFlagRatio.
func NewEngine(resolver *pricing.Resolver, flagRatio float64) *Engine {
	if flagRatio <= 0 {
		flagRatio = DefaultFlagRatio
	}
	return &Engine{resolver: resolver, ratio: decimal.NewFromFloat(flagRatio)}
}

// Audit resolves and judges every line item against card. Either every item
// is annotated or an error is returned; bill is not modified.
func (e *Engine) Audit(bill model.Bill, card model.RateCard) (*model.AuditResult, error) {
	forced, err := validate(bill)
	if err != nil {
		return nil, err
	}

	ct := forced
	if ct == "" {
		ct = e.resolver.Classify(bill.City)
	}

	items := make([]model.LineItem, len(bill.LineItems))
	sum := decimal.Zero
	savings := decimal.Zero
	for i, in := range bill.LineItems {
		items[i] = e.annotate(in, bill.City, forced, card)
		sum = sum.Add(decimal.NewFromFloat(in.Price))
		if items[i].Flagged {
			savings = savings.Add(decimal.NewFromFloat(items[i].Savings))
		}
	}

	total := sum.Round(2).InexactFloat64()
	if bill.TotalAmount != nil {
		total = *bill.TotalAmount
	}

	return &model.AuditResult{
		HospitalName:     bill.HospitalName,
		PatientName:      bill.PatientName,
		BillDate:         bill.BillDate,
		City:             bill.City,
		CityTier:         e.resolver.TierLabel(ct),
		TotalAmount:      total,
		PotentialSavings: savings.Round(2).InexactFloat64(),
		LineItems:        items,
	}, nil
}

func (e *Engine) annotate(in model.LineItem, city string, forced tier.CityTier, card model.RateCard) model.LineItem {
	out := in
	if out.Quantity < 1 {
		out.Quantity = 1
	}

	res := e.resolver.Lookup(in.Service, city, forced, card)
	out.StandardPrice = res.Price
	out.PriceSource = res.Source
	out.Savings = 0

	price := decimal.NewFromFloat(in.Price)
	std := decimal.NewFromFloat(res.Price)

	if !std.IsPositive() {
		out.Indeterminate = true
		out.Flagged = in.Suspicious
		return out
	}

	out.Indeterminate = false
	overpriced := price.GreaterThan(std.Mul(e.ratio))
	out.Flagged = overpriced || in.Suspicious
	if out.Flagged {
		diff := price.Sub(std)
		if diff.IsPositive() {
			out.Savings = diff.Round(2).InexactFloat64()
		}
	}
	return out
}

func validate(bill model.Bill) (tier.CityTier, error) {
	if bill.LineItems == nil {
		return "", &model.InputError{Field: "line_items", Reason: "missing"}
	}
	for i, it := range bill.LineItems {
		if normalize.ServiceKey(it.Service) == "" {
			return "", &model.InputError{Field: fmt.Sprintf("line_items[%d].service", i), Reason: "missing service name"}
		}
		if it.Price < 0 {
			return "", &model.InputError{Field: fmt.Sprintf("line_items[%d].price", i), Reason: "negative price"}
		}
	}
	if bill.Tier == "" {
		return "", nil
	}
	ct, err := tier.Parse(bill.Tier)
	if err != nil {
		return "", &model.InputError{Field: "tier", Reason: err.Error()}
	}
	return ct, nil
}
