package ratecard

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gyeh/billaudit/internal/config"
	"github.com/gyeh/billaudit/internal/db"
)

// OpenBackend connects the backend named by sc.Kind. The postgres backend
// applies pending migrations before returning.
func OpenBackend(ctx context.Context, sc config.StoreConfig, log zerolog.Logger) (Backend, error) {
	switch sc.Kind {
	case config.StoreMemory:
		return MemoryBackend{}, nil
	case config.StoreFile:
		return NewFileBackend(sc.Path), nil
	case config.StoreLevelDB:
		return OpenLevelDB(sc.Path)
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, sc.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.ApplyMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		return NewPostgresBackend(pool), nil
	case config.StoreMongo:
		return ConnectMongo(ctx, sc.URI, sc.Database)
	default:
		return nil, fmt.Errorf("unknown store kind %q", sc.Kind)
	}
}

// Open builds a ledger over the configured backend and loads it. A backend
// that cannot be reached is returned as a *StorageError; a load failure is
// logged and the ledger starts empty, refusing durable writes.
func Open(ctx context.Context, c *config.Config, log zerolog.Logger) (*Ledger, error) {
	backend, err := OpenBackend(ctx, c.Store, log)
	if err != nil {
		return nil, &StorageError{Op: "open " + c.Store.Kind, Err: err}
	}
	l := New(backend, log, Options{
		Retention:    c.Ledger.Retention,
		HistoryLimit: c.Ledger.HistoryLimit,
	})
	if err := l.Load(ctx); err != nil {
		log.Warn().Err(err).Str("store", c.Store.Kind).Msg("rate card unavailable, using tier table only; learning will not be persisted")
	}
	return l, nil
}
