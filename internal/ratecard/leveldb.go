package ratecard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/gyeh/billaudit/internal/model"
)

// LevelDB key layout:
//
//	rate/<service key>  => LedgerEntry JSON
//	bills               => []BillRecord JSON, newest first
const (
	levelRatePrefix = "rate/"
	levelBillsKey   = "bills"
)

// LevelDBBackend stores one key per service so each update touches only that
// service's entry.
type LevelDBBackend struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) a LevelDB directory at path.
func OpenLevelDB(path string) (*LevelDBBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBBackend{db: db}, nil
}

func (b *LevelDBBackend) Load(ctx context.Context) (*model.Document, error) {
	doc := model.NewDocument()

	iter := b.db.NewIterator(util.BytesPrefix([]byte(levelRatePrefix)), nil)
	for iter.Next() {
		var e model.LedgerEntry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			iter.Release()
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		if e.ServiceKey == "" {
			e.ServiceKey = string(iter.Key()[len(levelRatePrefix):])
		}
		doc.RateCard[e.ServiceKey] = e
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate rate card: %w", err)
	}

	data, err := b.db.Get([]byte(levelBillsKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bills: %w", err)
	}
	if err := json.Unmarshal(data, &doc.Bills); err != nil {
		return nil, fmt.Errorf("decode bills: %w", err)
	}
	return doc, nil
}

func (b *LevelDBBackend) PutEntry(ctx context.Context, entry model.LedgerEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return b.db.Put([]byte(levelRatePrefix+entry.ServiceKey), data, nil)
}

func (b *LevelDBBackend) PutBills(ctx context.Context, bills []model.BillRecord) error {
	data, err := json.Marshal(bills)
	if err != nil {
		return fmt.Errorf("encode bills: %w", err)
	}
	return b.db.Put([]byte(levelBillsKey), data, nil)
}

func (b *LevelDBBackend) Close() error {
	return b.db.Close()
}
