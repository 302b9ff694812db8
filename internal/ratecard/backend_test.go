package ratecard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/billaudit/internal/model"
)

// exerciseBackend checks the behaviour every Backend shares. open must return
// a fresh handle onto the same underlying store each time it is called.
func exerciseBackend(t *testing.T, open func() Backend) {
	t.Helper()
	ctx := context.Background()

	b := open()
	doc, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.RateCard)
	assert.Empty(t, doc.Bills)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	entry := model.LedgerEntry{
		ServiceKey: "icu charges (per day)",
		Observations: []model.PriceObservation{
			{Price: 9000, City: "chennai", Timestamp: at},
			{Price: 11000, City: "unknown", Timestamp: at.Add(time.Hour)},
		},
		AveragePrice: 10000,
		LastUpdated:  at.Add(time.Hour),
	}
	require.NoError(t, b.PutEntry(ctx, entry))

	entry.Observations = append(entry.Observations, model.PriceObservation{Price: 10000, City: "pune", Timestamp: at})
	require.NoError(t, b.PutEntry(ctx, entry))
	require.NoError(t, b.PutEntry(ctx, model.LedgerEntry{
		ServiceKey:   "dr. mehta consultation",
		Observations: []model.PriceObservation{{Price: 800, City: "pune", Timestamp: at}},
		AveragePrice: 800,
		LastUpdated:  at,
	}))

	bills := []model.BillRecord{
		{ID: "b2", Timestamp: at.Add(time.Minute), HospitalName: "City Care", City: "pune", TotalAmount: 800,
			LineItems: []model.LineItem{{Service: "Dr. Mehta Consultation", Quantity: 1, Price: 800, StandardPrice: 800}}},
		{ID: "b1", Timestamp: at, HospitalName: "Apollo", City: "chennai", TotalAmount: 9000, PotentialSavings: 1000},
	}
	require.NoError(t, b.PutBills(ctx, bills))
	require.NoError(t, b.PutBills(ctx, bills))
	require.NoError(t, b.Close())

	b = open()
	defer b.Close()
	doc, err = b.Load(ctx)
	require.NoError(t, err)

	require.Len(t, doc.RateCard, 2)
	got := doc.RateCard["icu charges (per day)"]
	assert.Equal(t, "icu charges (per day)", got.ServiceKey)
	require.Len(t, got.Observations, 3)
	assert.Equal(t, 11000.0, got.Observations[1].Price)
	assert.Equal(t, "unknown", got.Observations[1].City)
	assert.True(t, got.Observations[0].Timestamp.Equal(at))
	assert.Equal(t, 10000.0, got.AveragePrice)
	assert.Contains(t, doc.RateCard, "dr. mehta consultation")

	require.Len(t, doc.Bills, 2)
	assert.Equal(t, "b2", doc.Bills[0].ID)
	assert.Equal(t, "b1", doc.Bills[1].ID)
	assert.Equal(t, 1000.0, doc.Bills[1].PotentialSavings)
	require.Len(t, doc.Bills[0].LineItems, 1)
	assert.Equal(t, "Dr. Mehta Consultation", doc.Bills[0].LineItems[0].Service)
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	exerciseBackend(t, func() Backend { return NewFileBackend(path) })
}

func TestFileBackend_Layout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	b := NewFileBackend(path)
	require.NoError(t, b.PutEntry(ctx, model.LedgerEntry{ServiceKey: "mri", AveragePrice: 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rateCard"`)
	assert.Contains(t, string(data), `"bills"`)
	assert.Contains(t, string(data), `"averagePrice"`)
}

func TestFileBackend_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileBackend(path).Load(context.Background())
	assert.Error(t, err)

	l := newTestLedger(NewFileBackend(path), Options{})
	err = l.Load(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestLevelDBBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")
	exerciseBackend(t, func() Backend {
		b, err := OpenLevelDB(dir)
		require.NoError(t, err)
		return b
	})
}

func TestMemoryBackend(t *testing.T) {
	doc, err := MemoryBackend{}.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.RateCard)
	assert.NotNil(t, doc.Bills)
}
