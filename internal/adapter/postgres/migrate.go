package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema evolution is additive only: columns introduced by later versions
// arrive via ALTER TABLE ADD COLUMN, so rows persisted before the
// validation and archive passes existed simply carry NULLs. Each version
// runs once inside its own transaction, recorded in schema_migrations.
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS subjects (
				id BIGSERIAL PRIMARY KEY,
				slug TEXT NOT NULL UNIQUE,
				profile_url TEXT NOT NULL,
				name TEXT,
				image_url TEXT,
				source_name TEXT,
				source_url TEXT,
				author TEXT,
				description_html TEXT,
				description_text TEXT,
				region TEXT,
				country TEXT,
				state TEXT,
				sex TEXT,
				date_of_killing DATE,
				previous_threats BOOLEAN,
				type_of_work TEXT,
				sector TEXT,
				sector_detail TEXT,
				more_information TEXT,
				contact_email TEXT,
				created_at TIMESTAMPTZ
			);`,
			`CREATE TABLE IF NOT EXISTS links (
				id BIGSERIAL PRIMARY KEY,
				subject_id BIGINT NOT NULL REFERENCES subjects(id),
				label TEXT,
				url TEXT NOT NULL
			);`,
			`CREATE UNIQUE INDEX IF NOT EXISTS links_subject_url_idx ON links (subject_id, url);`,
		},
	},
	{
		version: 2,
		stmts: []string{
			`ALTER TABLE links ADD COLUMN IF NOT EXISTS is_active BOOLEAN;`,
			`ALTER TABLE links ADD COLUMN IF NOT EXISTS last_status_code INTEGER;`,
			`ALTER TABLE links ADD COLUMN IF NOT EXISTS contains_name BOOLEAN;`,
			`ALTER TABLE links ADD COLUMN IF NOT EXISTS page_text TEXT;`,
			`ALTER TABLE links ADD COLUMN IF NOT EXISTS checked_at TIMESTAMPTZ;`,
		},
	},
	{
		version: 3,
		stmts: []string{
			`ALTER TABLE links ADD COLUMN IF NOT EXISTS is_archived BOOLEAN;`,
			`ALTER TABLE links ADD COLUMN IF NOT EXISTS archived_url TEXT;`,
			`ALTER TABLE links ADD COLUMN IF NOT EXISTS archived_timestamp TEXT;`,
		},
	},
	{
		version: 4,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS failed_fetches (
				id BIGSERIAL PRIMARY KEY,
				url TEXT NOT NULL UNIQUE,
				failure_reason TEXT,
				http_status_code INTEGER,
				last_attempt_at TIMESTAMPTZ NOT NULL,
				retry_count INTEGER NOT NULL DEFAULT 0,
				next_retry_at TIMESTAMPTZ NOT NULL
			);`,
		},
	},
}

// Migrate brings the schema up to the current version. It runs once at
// startup, never interleaved with per-record processing.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("applying migration %d: %w", m.version, err)
			}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1);`, m.version); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
		slog.Info("Applied schema migration", "version", m.version)
	}
	return nil
}
