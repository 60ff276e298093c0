package ports

import (
	"context"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/domain/dataset"
)

// DatasetRepository persists observation tables
type DatasetRepository interface {
	Save(ctx context.Context, id core.DatasetID, name string, table *dataset.Table) error
	Load(ctx context.Context, id core.DatasetID) (*dataset.Table, error)
	List(ctx context.Context) ([]DatasetInfo, error)
}

// DatasetInfo summarizes a stored dataset
type DatasetInfo struct {
	ID       core.DatasetID `db:"id" json:"id"`
	Name     string         `db:"name" json:"name"`
	RowCount int            `db:"row_count" json:"row_count"`
	ColCount int            `db:"col_count" json:"col_count"`
}

// RunRepository persists completed bootstrap runs for later inspection
type RunRepository interface {
	SaveRun(ctx context.Context, datasetID core.DatasetID, result *causal.BootstrapResult) error
	LoadRun(ctx context.Context, id core.RunID) (*causal.BootstrapResult, error)
}
