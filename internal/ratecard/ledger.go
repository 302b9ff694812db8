// Package ratecard is the reference price store: a ledger of observed prices
// per service with a running average, plus the bounded bill history.
package ratecard

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/normalize"
)

const (
	DefaultRetention    = 50
	DefaultHistoryLimit = 100
)

// ErrNotLoaded is wrapped by writes refused because the last Load failed.
// Writing then would replace stored entries with partial in-memory state.
var ErrNotLoaded = errors.New("rate card not loaded from store")

// Options tune retention. Zero values use the defaults.
type Options struct {
	Retention    int // observations kept per service
	HistoryLimit int // bills kept in history
	Now          func() time.Time
}

// Ledger is the process-wide rate card. Writers are serialized by writeMu,
// which is held across the durable write; mu guards the in-memory state only,
// so readers never wait on backend I/O.
type Ledger struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	card    model.RateCard
	bills   []model.BillRecord
	backend Backend
	log     zerolog.Logger
	// unsynced is set by a failed Load and cleared by a successful one.
	unsynced bool

	retention    int
	historyLimit int
	now          func() time.Time
}

// New returns an empty ledger over backend. Call Load to read persisted state.
func New(backend Backend, log zerolog.Logger, opts Options) *Ledger {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if backend == nil {
		backend = MemoryBackend{}
	}
	return &Ledger{
		card:         model.RateCard{},
		backend:      backend,
		log:          log,
		retention:    opts.Retention,
		historyLimit: opts.HistoryLimit,
		now:          opts.Now,
	}
}

// Load replaces the in-memory state with what the backend holds. On error the
// ledger is left empty and usable; audits then fall back to the tier table,
// and writes update memory only until a later Load succeeds.
func (l *Ledger) Load(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	doc, err := l.backend.Load(ctx)
	if err != nil {
		l.unsynced = true
		return &StorageError{Op: "load", Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.unsynced = false
	l.card = mergeEntries(doc.RateCard, l.retain)
	l.bills = doc.Bills
	if len(l.bills) > l.historyLimit {
		l.bills = l.bills[:l.historyLimit]
	}

	l.log.Info().
		Int("services", len(l.card)).
		Int("bills", len(l.bills)).
		Msg("rate card loaded")
	return nil
}

// RecordObservation appends a price seen now for serviceKey and persists the
// updated entry before returning. The in-memory card is updated even when the
// write fails; the failure is returned as a *StorageError.
func (l *Ledger) RecordObservation(ctx context.Context, serviceKey string, price float64, city string) error {
	return l.RecordObservationAt(ctx, serviceKey, price, city, l.now())
}

// RecordObservationAt is RecordObservation with an explicit timestamp. The
// observation is placed in timestamp order, so a backdated one is the first
// to go when retention trims the entry.
func (l *Ledger) RecordObservationAt(ctx context.Context, serviceKey string, price float64, city string, at time.Time) error {
	key := normalize.ServiceKey(serviceKey)
	if key == "" {
		return nil
	}
	if city == "" {
		city = "unknown"
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	e := l.card[key].Clone()
	e.ServiceKey = key
	e.Observations = insertByTime(e.Observations, model.PriceObservation{Price: price, City: city, Timestamp: at})
	e = l.retain(e)
	if at.After(e.LastUpdated) {
		e.LastUpdated = at
	}
	l.card[key] = e
	l.mu.Unlock()

	if l.unsynced {
		return &StorageError{Op: "put entry", Err: ErrNotLoaded}
	}
	if err := l.backend.PutEntry(ctx, e.Clone()); err != nil {
		return &StorageError{Op: "put entry", Err: err}
	}
	return nil
}

// AveragePriceFor returns the learned average for serviceKey.
func (l *Ledger) AveragePriceFor(serviceKey string) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.card.AveragePriceFor(normalize.ServiceKey(serviceKey))
}

// Entry returns a copy of the ledger entry for serviceKey.
func (l *Ledger) Entry(serviceKey string) (model.LedgerEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.card[normalize.ServiceKey(serviceKey)]
	if !ok {
		return model.LedgerEntry{}, false
	}
	return e.Clone(), true
}

// Snapshot returns a deep copy of the current rate card.
func (l *Ledger) Snapshot() model.RateCard {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(model.RateCard, len(l.card))
	for k, e := range l.card {
		out[k] = e.Clone()
	}
	return out
}

// AppendBill puts rec at the head of the history, trims it, and persists it.
func (l *Ledger) AppendBill(ctx context.Context, rec model.BillRecord) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	bills := make([]model.BillRecord, 0, len(l.bills)+1)
	bills = append(bills, rec)
	bills = append(bills, l.bills...)
	if len(bills) > l.historyLimit {
		bills = bills[:l.historyLimit]
	}
	l.bills = bills
	snapshot := l.copyBills(len(bills))
	l.mu.Unlock()

	if l.unsynced {
		return &StorageError{Op: "put bills", Err: ErrNotLoaded}
	}
	if err := l.backend.PutBills(ctx, snapshot); err != nil {
		return &StorageError{Op: "put bills", Err: err}
	}
	return nil
}

// Bills returns up to limit history entries, newest first. limit <= 0 returns all.
func (l *Ledger) Bills(limit int) []model.BillRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.bills) {
		limit = len(l.bills)
	}
	return l.copyBills(limit)
}

// Close releases the backend.
func (l *Ledger) Close() error {
	return l.backend.Close()
}

func (l *Ledger) copyBills(n int) []model.BillRecord {
	out := make([]model.BillRecord, n)
	copy(out, l.bills[:n])
	return out
}

// mergeEntries normalizes stored keys. Entries whose keys collapse to the same
// service key are merged, observations ordered oldest first.
func mergeEntries(stored model.RateCard, retain func(model.LedgerEntry) model.LedgerEntry) model.RateCard {
	keys := make([]string, 0, len(stored))
	for k := range stored {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	card := model.RateCard{}
	for _, key := range keys {
		e := stored[key]
		k := normalize.ServiceKey(key)
		if k == "" || len(e.Observations) == 0 {
			continue
		}
		merged := card[k]
		merged.ServiceKey = k
		merged.Observations = append(merged.Observations, e.Observations...)
		if e.LastUpdated.After(merged.LastUpdated) {
			merged.LastUpdated = e.LastUpdated
		}
		card[k] = merged
	}
	for k, e := range card {
		sort.SliceStable(e.Observations, func(i, j int) bool {
			return e.Observations[i].Timestamp.Before(e.Observations[j].Timestamp)
		})
		card[k] = retain(e)
	}
	return card
}

// insertByTime adds o after every observation not newer than it.
func insertByTime(obs []model.PriceObservation, o model.PriceObservation) []model.PriceObservation {
	i := sort.Search(len(obs), func(i int) bool { return obs[i].Timestamp.After(o.Timestamp) })
	obs = append(obs, model.PriceObservation{})
	copy(obs[i+1:], obs[i:])
	obs[i] = o
	return obs
}

// retain trims e to the newest l.retention observations and recomputes the
// average over what is left.
func (l *Ledger) retain(e model.LedgerEntry) model.LedgerEntry {
	if n := len(e.Observations); n > l.retention {
		e.Observations = append([]model.PriceObservation(nil), e.Observations[n-l.retention:]...)
	}
	e.AveragePrice = Mean(e.Observations)
	return e
}

// Mean is the arithmetic mean of the observed prices, 0 for none.
func Mean(obs []model.PriceObservation) float64 {
	if len(obs) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, o := range obs {
		sum = sum.Add(decimal.NewFromFloat(o.Price))
	}
	return sum.Div(decimal.NewFromInt(int64(len(obs)))).InexactFloat64()
}
