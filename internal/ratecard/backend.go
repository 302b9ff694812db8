package ratecard

import (
	"context"
	"errors"
	"fmt"

	"github.com/gyeh/billaudit/internal/model"
)

// Backend persists ledger entries and the bill history. Each call replaces the
// stored value for its key; the Ledger serializes calls.
type Backend interface {
	// Load returns everything stored so far. A backend with nothing stored
	// returns an empty document, not an error.
	Load(ctx context.Context) (*model.Document, error)
	// PutEntry stores the ledger entry for one service key.
	PutEntry(ctx context.Context, entry model.LedgerEntry) error
	// PutBills replaces the stored bill history (newest first).
	PutBills(ctx context.Context, bills []model.BillRecord) error
	Close() error
}

// ErrStorageUnavailable is matched by every StorageError.
var ErrStorageUnavailable = errors.New("storage unavailable")

// StorageError reports a failed read or write of the backing store.
type StorageError struct {
	Op  string // "load", "put entry", "put bills"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrStorageUnavailable, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// MemoryBackend keeps nothing beyond the process; used for tests and dry runs.
type MemoryBackend struct{}

func (MemoryBackend) Load(context.Context) (*model.Document, error) {
	return model.NewDocument(), nil
}

func (MemoryBackend) PutEntry(context.Context, model.LedgerEntry) error { return nil }

func (MemoryBackend) PutBills(context.Context, []model.BillRecord) error { return nil }

func (MemoryBackend) Close() error { return nil }
