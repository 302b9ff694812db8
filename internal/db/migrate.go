package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/billaudit/internal/sql"
)

const migrationsTable = `CREATE SCHEMA IF NOT EXISTS billaudit;
CREATE TABLE IF NOT EXISTS billaudit.schema_migrations (
    name       text PRIMARY KEY,
    applied_at timestamptz NOT NULL DEFAULT now()
)`

// ApplyMigrations runs the embedded SQL migrations that have not been applied
// yet, in filename order, each in its own transaction.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	if _, err := pool.Exec(ctx, migrationsTable); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := fs.ReadDir(embedsql.Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	applied := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		data, err := fs.ReadFile(embedsql.Migrations, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		var done bool
		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx,
				"INSERT INTO billaudit.schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING", name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				done = true
				return nil
			}
			_, err = tx.Exec(ctx, string(data))
			return err
		})
		if err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if done {
			log.Debug().Str("migration", name).Msg("migration already applied")
			continue
		}
		applied++
		log.Info().Str("migration", name).Msg("migration applied")
	}

	log.Info().Int("applied", applied).Msg("migrations up to date")
	return nil
}
