// Package learn feeds audited bills back into the rate card.
package learn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gyeh/billaudit/internal/model"
)

// ObservationPolicy chooses which price of a line item is recorded.
type ObservationPolicy string

const (
	// RecordCharged records what the hospital billed. Overcharges then pull
	// the learned average up, which is the current behaviour.
	RecordCharged ObservationPolicy = "charged"
	// RecordStandard records the resolved fair price instead.
	RecordStandard ObservationPolicy = "standard"
)

// ParsePolicy accepts "charged" or "standard" in any case; empty means charged.
func ParsePolicy(s string) (ObservationPolicy, error) {
	switch p := ObservationPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RecordCharged, nil
	case RecordCharged, RecordStandard:
		return p, nil
	default:
		return "", fmt.Errorf("unknown observation policy %q", s)
	}
}

// Store is the part of the rate card the learner writes to.
type Store interface {
	AppendBill(ctx context.Context, rec model.BillRecord) error
	RecordObservation(ctx context.Context, serviceKey string, price float64, city string) error
}

// Learner records audited bills and their prices.
type Learner struct {
	store  Store
	policy ObservationPolicy
	now    func() time.Time
	newID  func() string
}

// NewLearner returns a learner writing to store.
func NewLearner(store Store, policy ObservationPolicy) *Learner {
	if policy == "" {
		policy = RecordCharged
	}
	return &Learner{
		store:  store,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
}

// Policy reports which price the learner records.
func (l *Learner) Policy() ObservationPolicy { return l.policy }

// Learn appends result to the bill history and records one observation per
// priced line item. Every item is attempted; failures are joined.
func (l *Learner) Learn(ctx context.Context, result *model.AuditResult) error {
	if result == nil {
		return nil
	}
	var errs []error
	if err := l.store.AppendBill(ctx, result.Record(l.newID(), l.now())); err != nil {
		errs = append(errs, fmt.Errorf("append bill: %w", err))
	}
	for _, it := range result.LineItems {
		if it.Price <= 0 {
			continue
		}
		value := it.Price
		if l.policy == RecordStandard {
			if it.StandardPrice <= 0 {
				continue
			}
			value = it.StandardPrice
		}
		if err := l.store.RecordObservation(ctx, it.Service, value, result.City); err != nil {
			errs = append(errs, fmt.Errorf("record %q: %w", it.Service, err))
		}
	}
	return errors.Join(errs...)
}
