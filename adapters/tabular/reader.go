// Package tabular reads observation tables from Excel and CSV files.
package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"causalboot/domain/core"
	"causalboot/domain/dataset"
)

// Reader loads an observation table from an .xlsx or .csv file
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewReader creates a reader for the given file; the extension selects the format.
func NewReader(filePath string) *Reader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &Reader{filePath: filePath, fileType: fileType}
}

// Read parses the file into a Table. The first row is the header; every data
// cell must parse as a number. Empty cells are rejected because the core
// estimators have no missing-value semantics.
func (r *Reader) Read() (*dataset.Table, error) {
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, fmt.Errorf("dataset file: %w", err)
	}

	var rows [][]string
	var err error
	if r.fileType == "csv" {
		rows, err = r.readCSV()
	} else {
		rows, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}
	return tableFromRows(rows)
}

func (r *Reader) readCSV() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", r.filePath, err)
	}
	return rows, nil
}

func (r *Reader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", r.filePath, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx %s has no sheets", r.filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func tableFromRows(rows [][]string) (*dataset.Table, error) {
	if len(rows) < 2 {
		return nil, core.ErrEmptyTable
	}

	header := rows[0]
	columns := make(map[core.ColumnKey][]float64, len(header))
	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("empty column name at position %d", j)
		}
		values := make([]float64, 0, len(rows)-1)
		for i, row := range rows[1:] {
			if j >= len(row) || strings.TrimSpace(row[j]) == "" {
				return nil, fmt.Errorf("missing value for column %s at row %d", name, i+2)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", name, i+2, err)
			}
			values = append(values, v)
		}
		columns[core.ColumnKey(name)] = values
	}
	return dataset.NewTable(columns)
}
