package ui

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"causalboot/adapters/glm"
	"causalboot/adapters/resample"
	"causalboot/domain/causal"
	"causalboot/internal/analysis"
	"causalboot/internal/bootstrap"
	"causalboot/internal/testkit"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	driver := bootstrap.NewDriver(resample.NewResampler(), resample.NewStreamFactory(42))
	service := analysis.NewService(glm.NewFitter(), driver)

	defaults := bootstrap.DefaultOptions()
	defaults.Replicates = 50
	return NewApp(service, Config{Defaults: defaults})
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEstimateEndpoint(t *testing.T) {
	app := newTestApp(t)

	table, err := testkit.GenerateBinaryDesign(testkit.BinaryDesignConfig{
		Rows: 400, PExposedLow: 0.25, PExposedHigh: 0.75,
		PConfounder: 0.5, OutcomeNoise: 1.0, Seed: 9,
	})
	require.NoError(t, err)

	columns := make(map[string][]float64)
	for _, key := range table.ColumnKeys() {
		col, err := table.Column(key)
		require.NoError(t, err)
		columns[string(key)] = col
	}

	body, err := json.Marshal(map[string]interface{}{
		"columns": columns,
		"request": map[string]interface{}{
			"outcome":    "outcome",
			"exposure":   "exposure",
			"covariates": []string{"confounder"},
			"weight":     map[string]interface{}{"exposure": "binary", "stabilize": true},
		},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/estimate", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result causal.BootstrapResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 50, result.NUsed+result.NFailed)
	assert.Less(t, result.Lower, result.Upper)
}

func TestEstimateEndpointRejectsBadJSON(t *testing.T) {
	app := newTestApp(t)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/estimate", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeightsEndpoint(t *testing.T) {
	app := newTestApp(t)

	body := []byte(`{
		"columns": {
			"exposure":   [1, 0, 1, 0, 1, 0, 1, 0],
			"outcome":    [1.2, 0.3, 1.5, 0.1, 0.9, 0.4, 1.1, 0.2],
			"confounder": [1, 0, 1, 0, 0, 1, 1, 0]
		},
		"request": {
			"outcome": "outcome",
			"exposure": "exposure",
			"covariates": ["confounder"],
			"weight": {"exposure": "binary", "stabilize": true}
		}
	}`)

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/weights", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Weights     []float64              `json:"weights"`
		Diagnostics map[string]interface{} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Weights, 8)
}
