package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insight-labs/insightai/internal/adapter"
	"github.com/insight-labs/insightai/internal/dataset"
	"github.com/insight-labs/insightai/internal/executor"
	"github.com/insight-labs/insightai/internal/nlsql"
	"github.com/insight-labs/insightai/internal/pipeline"
	"github.com/insight-labs/insightai/internal/testutil"
)

// echoTranslator answers with a template, substituting the dataset table.
type echoTranslator struct {
	template string
	err      error
}

func (e *echoTranslator) Translate(_ context.Context, req nlsql.Request) (nlsql.Candidate, error) {
	if e.err != nil {
		return nlsql.Candidate{}, e.err
	}
	return nlsql.Candidate{Text: fmt.Sprintf(e.template, req.Schema.Table)}, nil
}

func newTestServer(t *testing.T, translator nlsql.Translator) (*Server, *dataset.Store) {
	t.Helper()

	db := adapter.NewDuckDBAdapter(testutil.NewTestLogger(t))
	require.NoError(t, db.Connect(context.Background(), adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = db.Close() })

	store := dataset.NewStore(db, testutil.NewTestLogger(t))
	exec := executor.New(db, executor.Options{}, testutil.NewTestLogger(t))
	orch := pipeline.New(store, translator, exec, testutil.NewTestLogger(t))

	srv := NewServer(Config{
		Store:        store,
		Orchestrator: orch,
		LLMReady:     func() bool { return true },
		Logger:       testutil.NewTestLogger(t),
	})
	return srv, store
}

const regionsCSV = "region,sales\nnorth,100\nsouth,200\neast,50\n"

func uploadCSV(t *testing.T, handler http.Handler, csv string) uploadResponse {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(csv))
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleUpload(t *testing.T) {
	srv, _ := newTestServer(t, &echoTranslator{})
	handler := srv.Routes()

	resp := uploadCSV(t, handler, regionsCSV)
	assert.NotEmpty(t, resp.DatasetHandle)
	assert.Equal(t, 3, resp.RowCount)
	require.Len(t, resp.Columns, 2)
	assert.Equal(t, columnInfo{Name: "region", Type: "text"}, resp.Columns[0])
	assert.Equal(t, columnInfo{Name: "sales", Type: "integer"}, resp.Columns[1])
	assert.Len(t, resp.SampleRows, 3)
}

func TestHandleUpload_BadCSV(t *testing.T) {
	srv, _ := newTestServer(t, &echoTranslator{})
	handler := srv.Routes()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestHandleAnalyze(t *testing.T) {
	srv, _ := newTestServer(t, &echoTranslator{
		template: "SELECT region, SUM(sales) AS total FROM %s GROUP BY region",
	})
	handler := srv.Routes()

	up := uploadCSV(t, handler, regionsCSV)

	body, _ := json.Marshal(analyzeRequest{
		Question:      "total sales by region",
		DatasetHandle: up.DatasetHandle,
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, up.DatasetHandle, result.DatasetHandle)
	assert.Contains(t, result.SQLQuery, "GROUP BY region")
	assert.Len(t, result.Table.Rows, 3)
	assert.NotEmpty(t, result.Insights)
	require.NotNil(t, result.ChartSpec)
}

func TestHandleAnalyze_EmptyHandleUsesCurrent(t *testing.T) {
	srv, _ := newTestServer(t, &echoTranslator{template: "SELECT region FROM %s"})
	handler := srv.Routes()
	uploadCSV(t, handler, regionsCSV)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze",
		strings.NewReader(`{"question":"list regions"}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHandleAnalyze_NoDataset(t *testing.T) {
	srv, _ := newTestServer(t, &echoTranslator{template: "SELECT 1"})
	handler := srv.Routes()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze",
		strings.NewReader(`{"question":"anything"}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAnalyze_RejectedSQL(t *testing.T) {
	srv, _ := newTestServer(t, &echoTranslator{template: "DROP TABLE %s"})
	handler := srv.Routes()
	uploadCSV(t, handler, regionsCSV)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze",
		strings.NewReader(`{"question":"destroy it"}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "denied_keyword", resp.Rule)
}

func TestHandleAnalyze_TranslatorDown(t *testing.T) {
	srv, _ := newTestServer(t, &echoTranslator{
		err: fmt.Errorf("%w: no API key configured", nlsql.ErrUnavailable),
	})
	handler := srv.Routes()
	uploadCSV(t, handler, regionsCSV)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze",
		strings.NewReader(`{"question":"anything"}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleAnalyze_MissingQuestion(t *testing.T) {
	srv, _ := newTestServer(t, &echoTranslator{template: "SELECT 1"})
	handler := srv.Routes()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, &echoTranslator{})
	handler := srv.Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, true, health["llm_configured"])
	assert.Equal(t, false, health["dataset_loaded"])

	uploadCSV(t, handler, regionsCSV)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, true, health["dataset_loaded"])
}
