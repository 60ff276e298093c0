package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeTempCSV(t, "exposure,outcome,confounder\n1,2.5,0\n0,1.1,1\n1,3.0,1\n")

	table, err := NewReader(path).Read()
	require.NoError(t, err)

	assert.Equal(t, 3, table.NumRows())
	col, err := table.Column("outcome")
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 1.1, 3.0}, col)
}

func TestReadCSVRejectsNonNumericCell(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,x\n")
	_, err := NewReader(path).Read()
	assert.Error(t, err)
}

func TestReadCSVRejectsMissingValue(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n3,\n")
	_, err := NewReader(path).Read()
	assert.Error(t, err)
}

func TestReadCSVRejectsHeaderOnly(t *testing.T) {
	path := writeTempCSV(t, "a,b\n")
	_, err := NewReader(path).Read()
	assert.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope.csv")).Read()
	assert.Error(t, err)
}
