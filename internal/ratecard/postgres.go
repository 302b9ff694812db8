package ratecard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/billaudit/internal/db"
	"github.com/gyeh/billaudit/internal/model"
	embedsql "github.com/gyeh/billaudit/internal/sql"
)

// PostgresBackend keeps one row per service key in billaudit.rate_card and
// the ordered history in billaudit.bills. Run db.ApplyMigrations first.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend wraps an open pool; Close closes it.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Load(ctx context.Context) (*model.Document, error) {
	doc := model.NewDocument()

	rows, err := b.pool.Query(ctx, embedsql.SelectEntries)
	if err != nil {
		return nil, fmt.Errorf("select rate card: %w", err)
	}
	for rows.Next() {
		var (
			e   model.LedgerEntry
			obs []byte
		)
		if err := rows.Scan(&e.ServiceKey, &obs, &e.AveragePrice, &e.LastUpdated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan rate card: %w", err)
		}
		if err := json.Unmarshal(obs, &e.Observations); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode observations for %q: %w", e.ServiceKey, err)
		}
		doc.RateCard[e.ServiceKey] = e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rate card: %w", err)
	}

	bodies, err := b.pool.Query(ctx, embedsql.SelectBills)
	if err != nil {
		return nil, fmt.Errorf("select bills: %w", err)
	}
	bills, err := pgx.CollectRows(bodies, func(row pgx.CollectableRow) (model.BillRecord, error) {
		var (
			body []byte
			rec  model.BillRecord
		)
		if err := row.Scan(&body); err != nil {
			return rec, err
		}
		return rec, json.Unmarshal(body, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("read bills: %w", err)
	}
	doc.Bills = bills
	return doc, nil
}

func (b *PostgresBackend) PutEntry(ctx context.Context, entry model.LedgerEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	obs, err := json.Marshal(entry.Observations)
	if err != nil {
		return fmt.Errorf("encode observations: %w", err)
	}
	if _, err := b.pool.Exec(ctx, embedsql.UpsertEntry,
		entry.ServiceKey, obs, entry.AveragePrice, entry.LastUpdated,
	); err != nil {
		return fmt.Errorf("upsert %q: %w", entry.ServiceKey, err)
	}
	return nil
}

// PutBills rewrites the history table in one transaction using COPY.
func (b *PostgresBackend) PutBills(ctx context.Context, bills []model.BillRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, embedsql.DeleteBills); err != nil {
			return fmt.Errorf("clear bills: %w", err)
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"billaudit", "bills"},
			db.BillColumns,
			db.NewBillSource(bills),
		); err != nil {
			return fmt.Errorf("copy bills: %w", err)
		}
		return nil
	})
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
