package model

import "time"

// LineItem is one billed service. Service, Quantity, Price and Suspicious come
// from the extraction step; the remaining fields are filled in by the audit.
type LineItem struct {
	Service    string  `json:"service"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Suspicious bool    `json:"suspicious"` // upstream heuristic flag

	StandardPrice float64 `json:"standard_price"`
	Flagged       bool    `json:"flagged"`
	Savings       float64 `json:"savings"`
	Indeterminate bool    `json:"indeterminate,omitempty"` // standard price was not positive
	PriceSource   string  `json:"price_source,omitempty"`
}

// Bill is the canonical inbound bill, produced by intake from whatever shape
// the extraction model returned.
type Bill struct {
	HospitalName string
	PatientName  string
	BillDate     string
	City         string
	// TotalAmount is nil when the bill did not state a total.
	TotalAmount *float64
	// Tier forces a pricing tier (e.g. "GOVERNMENT_SCHEME") instead of
	// classifying the city. Empty means classify.
	Tier      string
	LineItems []LineItem
}

// AuditResult is the annotated bill returned by the audit engine.
type AuditResult struct {
	HospitalName     string     `json:"hospital_name"`
	PatientName      string     `json:"patient_name"`
	BillDate         string     `json:"bill_date"`
	City             string     `json:"city"`
	CityTier         string     `json:"city_tier"`
	TotalAmount      float64    `json:"total_amount"`
	PotentialSavings float64    `json:"potential_savings"`
	LineItems        []LineItem `json:"line_items"`
}

// FlaggedItems returns the flagged subset of line items.
func (r *AuditResult) FlaggedItems() []LineItem {
	var out []LineItem
	for _, it := range r.LineItems {
		if it.Flagged {
			out = append(out, it)
		}
	}
	return out
}

// Record converts the result into a history entry.
func (r *AuditResult) Record(id string, at time.Time) BillRecord {
	items := make([]LineItem, len(r.LineItems))
	copy(items, r.LineItems)
	return BillRecord{
		ID:               id,
		Timestamp:        at,
		HospitalName:     r.HospitalName,
		PatientName:      r.PatientName,
		BillDate:         r.BillDate,
		City:             r.City,
		TotalAmount:      r.TotalAmount,
		PotentialSavings: r.PotentialSavings,
		LineItems:        items,
	}
}

// BillRecord is one entry of the bounded audit-trail history.
type BillRecord struct {
	ID               string     `json:"id"`
	Timestamp        time.Time  `json:"timestamp"`
	HospitalName     string     `json:"hospital_name"`
	PatientName      string     `json:"patient_name"`
	BillDate         string     `json:"bill_date"`
	City             string     `json:"city"`
	TotalAmount      float64    `json:"total_amount"`
	PotentialSavings float64    `json:"potential_savings"`
	LineItems        []LineItem `json:"line_items"`
}
