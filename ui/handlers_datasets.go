package ui

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"causalboot/domain/core"
	"causalboot/internal/analysis"
	"causalboot/internal/bootstrap"
)

// saveDatasetRequest is the JSON body of POST /api/datasets
type saveDatasetRequest struct {
	Name    string               `json:"name"`
	Columns map[string][]float64 `json:"columns"`
}

func (a *App) handleSaveDataset(w http.ResponseWriter, r *http.Request) {
	var req saveDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	table, err := tableFromJSON(req.Columns)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	id := core.DatasetID(core.NewID())
	if err := a.datasets.Save(r.Context(), id, req.Name, table); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (a *App) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	infos, err := a.datasets.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// storedEstimateRequest is the JSON body of POST /api/datasets/{id}/estimate
type storedEstimateRequest struct {
	Request   analysis.Request   `json:"request"`
	Bootstrap *bootstrap.Options `json:"bootstrap,omitempty"`
}

func (a *App) handleEstimateStored(w http.ResponseWriter, r *http.Request) {
	datasetID, err := core.ParseDatasetID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req storedEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	table, err := a.datasets.Load(r.Context(), datasetID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
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

	if a.runs != nil {
		if err := a.runs.SaveRun(r.Context(), datasetID, result); err != nil {
			a.log.Error("persist run %s: %v", result.RunID, err)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *App) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := a.runs.LoadRun(r.Context(), runID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
