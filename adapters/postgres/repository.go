// Package postgres persists observation tables and completed bootstrap runs.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/domain/dataset"
	"causalboot/ports"
)

// Connect opens a Postgres connection pool for the given URL.
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// datasetRepository implements ports.DatasetRepository over Postgres.
// Tables are stored as a JSONB column map; the core only ever loads whole
// tables, so a row-per-cell layout buys nothing.
type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a dataset repository
func NewDatasetRepository(db *sqlx.DB) ports.DatasetRepository {
	return &datasetRepository{db: db}
}

func (r *datasetRepository) Save(ctx context.Context, id core.DatasetID, name string, table *dataset.Table) error {
	columns := make(map[string][]float64, len(table.ColumnKeys()))
	for _, key := range table.ColumnKeys() {
		values, err := table.Column(key)
		if err != nil {
			return err
		}
		columns[string(key)] = values
	}
	payload, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}

	query := `INSERT INTO datasets (id, name, row_count, col_count, columns, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, row_count = EXCLUDED.row_count,
			col_count = EXCLUDED.col_count, columns = EXCLUDED.columns`
	if _, err := r.db.ExecContext(ctx, query, id, name, table.NumRows(), len(columns), payload); err != nil {
		return fmt.Errorf("save dataset %s: %w", id, err)
	}
	return nil
}

func (r *datasetRepository) Load(ctx context.Context, id core.DatasetID) (*dataset.Table, error) {
	var payload []byte
	query := `SELECT columns FROM datasets WHERE id = $1`
	if err := r.db.GetContext(ctx, &payload, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("dataset %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("load dataset %s: %w", id, err)
	}

	var raw map[string][]float64
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal dataset %s: %w", id, err)
	}
	columns := make(map[core.ColumnKey][]float64, len(raw))
	for name, values := range raw {
		columns[core.ColumnKey(name)] = values
	}
	return dataset.NewTable(columns)
}

func (r *datasetRepository) List(ctx context.Context) ([]ports.DatasetInfo, error) {
	var infos []ports.DatasetInfo
	query := `SELECT id, name, row_count, col_count FROM datasets ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &infos, query); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return infos, nil
}

// runRepository implements ports.RunRepository over Postgres
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) SaveRun(ctx context.Context, datasetID core.DatasetID, result *causal.BootstrapResult) error {
	failures, err := json.Marshal(result.Failures)
	if err != nil {
		return fmt.Errorf("marshal failures: %w", err)
	}

	query := `INSERT INTO runs (
		id, dataset_id, point_estimate, lower_bound, upper_bound, alpha,
		method, point_mode, apparent_estimate, n_used, n_failed, failures, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())`
	_, err = r.db.ExecContext(ctx, query,
		result.RunID, datasetID, result.PointEstimate, result.Lower, result.Upper, result.Alpha,
		result.Method, result.PointMode, result.ApparentEstimate, result.NUsed, result.NFailed, failures,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}
	return nil
}

func (r *runRepository) LoadRun(ctx context.Context, id core.RunID) (*causal.BootstrapResult, error) {
	row := struct {
		ID               core.RunID `db:"id"`
		PointEstimate    float64    `db:"point_estimate"`
		Lower            float64    `db:"lower_bound"`
		Upper            float64    `db:"upper_bound"`
		Alpha            float64    `db:"alpha"`
		Method           string     `db:"method"`
		PointMode        string     `db:"point_mode"`
		ApparentEstimate float64    `db:"apparent_estimate"`
		NUsed            int        `db:"n_used"`
		NFailed          int        `db:"n_failed"`
		Failures         []byte     `db:"failures"`
	}{}

	query := `SELECT id, point_estimate, lower_bound, upper_bound, alpha, method,
		point_mode, apparent_estimate, n_used, n_failed, failures
	FROM runs WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	var failures []causal.ReplicateFailure
	if len(row.Failures) > 0 {
		if err := json.Unmarshal(row.Failures, &failures); err != nil {
			return nil, fmt.Errorf("unmarshal failures for run %s: %w", id, err)
		}
	}

	return &causal.BootstrapResult{
		RunID:            row.ID,
		PointEstimate:    row.PointEstimate,
		Lower:            row.Lower,
		Upper:            row.Upper,
		Alpha:            row.Alpha,
		Method:           causal.IntervalMethod(row.Method),
		PointMode:        causal.PointEstimateMode(row.PointMode),
		ApparentEstimate: row.ApparentEstimate,
		NUsed:            row.NUsed,
		NFailed:          row.NFailed,
		Failures:         failures,
	}, nil
}
