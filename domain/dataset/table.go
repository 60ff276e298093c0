package dataset

import (
	"fmt"
	"sort"

	"causalboot/domain/core"
)

// Table is an immutable columnar observation table. Every column holds one
// float64 value per observation, aligned by position. Transformations return
// a new Table; existing tables are never mutated in place.
type Table struct {
	rowCount int
	order    []core.ColumnKey
	columns  map[core.ColumnKey][]float64
}

// NewTable creates a table from named columns. All columns must have equal length.
func NewTable(columns map[core.ColumnKey][]float64) (*Table, error) {
	if len(columns) == 0 {
		return nil, core.ErrEmptyTable
	}

	rowCount := -1
	order := make([]core.ColumnKey, 0, len(columns))
	copied := make(map[core.ColumnKey][]float64, len(columns))
	for key, values := range columns {
		if rowCount == -1 {
			rowCount = len(values)
		} else if len(values) != rowCount {
			return nil, fmt.Errorf("%w: column %s has %d rows, expected %d",
				core.ErrLengthMismatch, key, len(values), rowCount)
		}
		order = append(order, key)
		copied[key] = append([]float64(nil), values...)
	}
	if rowCount == 0 {
		return nil, core.ErrEmptyTable
	}

	sortKeys(order)
	return &Table{rowCount: rowCount, order: order, columns: copied}, nil
}

// NumRows returns the observation count.
func (t *Table) NumRows() int {
	return t.rowCount
}

// ColumnKeys returns the column names in deterministic order.
func (t *Table) ColumnKeys() []core.ColumnKey {
	return append([]core.ColumnKey(nil), t.order...)
}

// HasColumn reports whether the table contains the named column.
func (t *Table) HasColumn(key core.ColumnKey) bool {
	_, ok := t.columns[key]
	return ok
}

// Column returns a copy of the named column's values.
func (t *Table) Column(key core.ColumnKey) ([]float64, error) {
	values, ok := t.columns[key]
	if !ok {
		return nil, core.NewColumnNotFoundError(string(key))
	}
	return append([]float64(nil), values...), nil
}

// WithColumn returns a new table augmented with a derived column. An existing
// column of the same name is replaced in the new table.
func (t *Table) WithColumn(key core.ColumnKey, values []float64) (*Table, error) {
	if len(values) != t.rowCount {
		return nil, fmt.Errorf("%w: derived column %s has %d rows, expected %d",
			core.ErrLengthMismatch, key, len(values), t.rowCount)
	}

	columns := make(map[core.ColumnKey][]float64, len(t.columns)+1)
	for k, v := range t.columns {
		columns[k] = v
	}
	columns[key] = append([]float64(nil), values...)

	order := t.order
	if !t.HasColumn(key) {
		order = append(append([]core.ColumnKey(nil), t.order...), key)
		sortKeys(order)
	}
	return &Table{rowCount: t.rowCount, order: order, columns: columns}, nil
}

// Select returns a new table containing the given rows, in order. Indices may
// repeat, which is how with-replacement resamples are materialized.
func (t *Table) Select(rows []int) (*Table, error) {
	if len(rows) == 0 {
		return nil, core.ErrEmptyTable
	}
	for _, r := range rows {
		if r < 0 || r >= t.rowCount {
			return nil, fmt.Errorf("row index %d out of range [0,%d)", r, t.rowCount)
		}
	}

	columns := make(map[core.ColumnKey][]float64, len(t.columns))
	for key, values := range t.columns {
		selected := make([]float64, len(rows))
		for i, r := range rows {
			selected[i] = values[r]
		}
		columns[key] = selected
	}
	return &Table{
		rowCount: len(rows),
		order:    append([]core.ColumnKey(nil), t.order...),
		columns:  columns,
	}, nil
}

func sortKeys(keys []core.ColumnKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}
