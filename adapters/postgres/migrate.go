package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS datasets (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		row_count  INTEGER NOT NULL,
		col_count  INTEGER NOT NULL,
		columns    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id                TEXT PRIMARY KEY,
		dataset_id        TEXT REFERENCES datasets(id),
		point_estimate    DOUBLE PRECISION NOT NULL,
		lower_bound       DOUBLE PRECISION NOT NULL,
		upper_bound       DOUBLE PRECISION NOT NULL,
		alpha             DOUBLE PRECISION NOT NULL,
		method            TEXT NOT NULL,
		point_mode        TEXT NOT NULL,
		apparent_estimate DOUBLE PRECISION NOT NULL,
		n_used            INTEGER NOT NULL,
		n_failed          INTEGER NOT NULL,
		failures          JSONB,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset_id)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
