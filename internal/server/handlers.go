package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/insight-labs/insightai/internal/dataset"
	"github.com/insight-labs/insightai/internal/executor"
	"github.com/insight-labs/insightai/internal/nlsql"
	"github.com/insight-labs/insightai/internal/sqlguard"
)

type uploadResponse struct {
	DatasetHandle string           `json:"dataset_handle"`
	Table         string           `json:"table"`
	RowCount      int              `json:"row_count"`
	Columns       []columnInfo     `json:"columns"`
	SampleRows    []map[string]any `json:"sample_rows"`
}

type columnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type analyzeRequest struct {
	Question      string `json:"question"`
	DatasetHandle string `json:"dataset_handle"`
}

type errorResponse struct {
	Error string `json:"error"`
	Rule  string `json:"rule,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, hasDataset := s.store.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"llm_configured": s.llmReady(),
		"dataset_loaded": hasDataset,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	defer body.Close()

	ds, err := s.store.Ingest(r.Context(), body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	columns := make([]columnInfo, len(ds.Schema.Columns))
	for i, c := range ds.Schema.Columns {
		columns[i] = columnInfo{Name: c.Name, Type: string(c.Type)}
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		DatasetHandle: ds.Handle,
		Table:         ds.Schema.Table,
		RowCount:      ds.Schema.RowCount,
		Columns:       columns,
		SampleRows:    ds.Schema.SampleRows,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	result, err := s.orchestrator.Analyze(r.Context(), req.Question, req.DatasetHandle)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeError maps pipeline failures onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		ingErr  *dataset.IngestionError
		ruleErr *sqlguard.RuleError
		execErr *executor.ExecError
	)

	switch {
	case errors.Is(err, dataset.ErrNoDataset):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &ingErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ingErr.Error()})
	case errors.As(err, &ruleErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ruleErr.Error(), Rule: ruleErr.Rule})
	case errors.Is(err, nlsql.ErrUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	case errors.As(err, &execErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: execErr.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
