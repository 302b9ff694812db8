package model

import "time"

// AuditSummary captures metrics from auditing a single bill.
type AuditSummary struct {
	Source           string
	SHA256           string
	Items            int
	Flagged          int
	Indeterminate    int
	TotalAmount      float64
	PotentialSavings float64
	Learned          bool // queued for the learning step
	DurationExtract  time.Duration
	DurationAudit    time.Duration
	DurationTotal    time.Duration
}
