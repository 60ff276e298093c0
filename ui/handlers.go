package ui

import (
	"encoding/json"
	"net/http"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/domain/dataset"
	"causalboot/internal/analysis"
	"causalboot/internal/bootstrap"
	"causalboot/internal/testkit"
	"causalboot/internal/weights"
)

// estimateRequest is the JSON body of POST /api/estimate
type estimateRequest struct {
	Columns map[string][]float64 `json:"columns"`
	Request analysis.Request     `json:"request"`
	// Bootstrap is optional; when omitted the server's defaults apply and a
	// full bootstrap run is performed.
	Bootstrap *bootstrap.Options `json:"bootstrap,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEstimate runs the full bootstrap estimation on an inline table.
func (a *App) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	table, err := tableFromJSON(req.Columns)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	opts := a.defaults
	if req.Bootstrap != nil {
		opts = *req.Bootstrap
	}

	result, err := a.service.RunBootstrap(r.Context(), table, req.Request, opts)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleWeights computes weights and returns their diagnostics without
// fitting the outcome model.
func (a *App) handleWeights(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	table, err := tableFromJSON(req.Columns)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	vector, err := a.service.ComputeWeights(r.Context(), table, req.Request)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"weights":     vector,
		"diagnostics": weights.Diagnose(vector),
	})
}

// handleDemo runs the canonical confounded binary design end to end, so the
// API can be exercised without supplying data.
func (a *App) handleDemo(w http.ResponseWriter, r *http.Request) {
	table, err := testkit.GenerateBinaryDesign(testkit.DefaultBinaryDesign())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	req := analysis.Request{
		Outcome:    testkit.ColOutcome,
		Exposure:   testkit.ColExposure,
		Covariates: []core.ColumnKey{testkit.ColConfounder},
		Weight:     weights.Options{Exposure: causal.ExposureBinary, Stabilize: true},
	}

	opts := a.defaults
	opts.Replicates = 200 // keep the demo quick

	result, err := a.service.RunBootstrap(r.Context(), table, req, opts)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func tableFromJSON(columns map[string][]float64) (*dataset.Table, error) {
	keyed := make(map[core.ColumnKey][]float64, len(columns))
	for name, values := range columns {
		keyed[core.ColumnKey(name)] = values
	}
	return dataset.NewTable(keyed)
}

func statusForError(err error) int {
	switch {
	case core.IsDomainError(err), core.IsEstimationError(err):
		return http.StatusUnprocessableEntity
	case core.IsBootstrapError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
