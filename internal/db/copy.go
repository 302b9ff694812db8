package db

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gyeh/billaudit/internal/model"
)

// BillColumns is the COPY column order produced by BillSource.
var BillColumns = []string{"position", "bill_id", "recorded_at", "body"}

// BillSource implements pgx.CopyFromSource over a bill history slice, keeping
// slice order as the stored position.
type BillSource struct {
	bills []model.BillRecord
	idx   int
	err   error
}

// NewBillSource creates a CopyFromSource over bills (newest first).
func NewBillSource(bills []model.BillRecord) *BillSource {
	return &BillSource{bills: bills, idx: -1}
}

// Next advances to the next bill.
func (s *BillSource) Next() bool {
	if s.err != nil {
		return false
	}
	s.idx++
	return s.idx < len(s.bills)
}

// Values returns the current bill's values in COPY column order.
func (s *BillSource) Values() ([]any, error) {
	b := s.bills[s.idx]
	body, err := json.Marshal(b)
	if err != nil {
		s.err = fmt.Errorf("encode bill %s: %w", b.ID, err)
		return nil, s.err
	}
	return []any{s.idx, b.ID, b.Timestamp, body}, nil
}

// Err returns any error encountered during iteration.
func (s *BillSource) Err() error {
	return s.err
}

// Compile-time check that BillSource satisfies the interface.
var _ pgx.CopyFromSource = (*BillSource)(nil)
