package model

import "time"

// PriceObservation is a single charged price seen on a processed bill.
type PriceObservation struct {
	Price     float64   `json:"price"`
	City      string    `json:"city"`
	Timestamp time.Time `json:"timestamp"`
}

// LedgerEntry holds the retained observations for one service key.
// AveragePrice is always the mean of Observations.
type LedgerEntry struct {
	ServiceKey   string             `json:"serviceKey"`
	Observations []PriceObservation `json:"observations"` // oldest first
	AveragePrice float64            `json:"averagePrice"`
	LastUpdated  time.Time          `json:"lastUpdated"`
}

// Clone returns a deep copy of the entry.
func (e LedgerEntry) Clone() LedgerEntry {
	obs := make([]PriceObservation, len(e.Observations))
	copy(obs, e.Observations)
	e.Observations = obs
	return e
}

// RateCard maps a service key to its ledger entry.
type RateCard map[string]LedgerEntry

// AveragePriceFor returns the learned average for key, if any.
func (rc RateCard) AveragePriceFor(key string) (float64, bool) {
	e, ok := rc[key]
	if !ok || len(e.Observations) == 0 {
		return 0, false
	}
	return e.AveragePrice, true
}

// Document is the persisted layout: bill history plus the rate card.
type Document struct {
	Bills    []BillRecord `json:"bills"` // newest first
	RateCard RateCard     `json:"rateCard"`
}

// NewDocument returns an empty document with non-nil collections.
func NewDocument() *Document {
	return &Document{Bills: []BillRecord{}, RateCard: RateCard{}}
}
