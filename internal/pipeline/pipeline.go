// Package pipeline orchestrates a full analysis run: translate the question
// to SQL, validate it, execute it, then derive stats, insights, a chart
// shape, and optionally a forecast.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/insight-labs/insightai/internal/analysis"
	"github.com/insight-labs/insightai/internal/chart"
	"github.com/insight-labs/insightai/internal/dataset"
	"github.com/insight-labs/insightai/internal/executor"
	"github.com/insight-labs/insightai/internal/nlsql"
	"github.com/insight-labs/insightai/internal/predict"
	"github.com/insight-labs/insightai/internal/sqlguard"
)

// Stages of an analysis run, used in logs.
const (
	stageTranslating = "translating"
	stageValidating  = "validating"
	stageExecuting   = "executing"
	stageAnalyzing   = "analyzing"
)

// forecastKeywords in a question trigger the prediction step.
var forecastKeywords = []string{
	"predict", "forecast", "next month", "next quarter", "next year",
	"future", "estimate", "project",
}

// Result is the full output of one analysis run.
type Result struct {
	DatasetHandle string                          `json:"dataset_handle"`
	Question      string                          `json:"question"`
	SQLQuery      string                          `json:"sql_query"`
	Table         *executor.ResultSet             `json:"table_result"`
	Stats         map[string]analysis.ColumnStats `json:"stats"`
	Insights      []string                        `json:"insights"`
	Prediction    *predict.Forecast               `json:"prediction,omitempty"`
	ChartSpec     *chart.Spec                     `json:"chart_spec,omitempty"`
	ChartBase64   string                          `json:"chart_base64,omitempty"`
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	store      *dataset.Store
	translator nlsql.Translator
	exec       *executor.Executor
	logger     *slog.Logger
}

// New creates an orchestrator. If logger is nil, a discard logger is used.
func New(store *dataset.Store, translator nlsql.Translator, exec *executor.Executor, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		store:      store,
		translator: translator,
		exec:       exec,
		logger:     logger,
	}
}

// Analyze answers a question against the dataset the handle resolves to.
// The dataset is snapshotted up front, so a concurrent upload cannot swap
// the schema mid-run. Validation gets one retry with the violated rule fed
// back into the prompt; every other failure ends the run.
func (o *Orchestrator) Analyze(ctx context.Context, question, handle string) (*Result, error) {
	ds, err := o.store.Get(handle)
	if err != nil {
		return nil, err
	}

	validator := sqlguard.New(ds.Schema)

	stmt, err := o.translateAndValidate(ctx, validator, nlsql.Request{
		Question: question,
		Schema:   ds.Schema,
	})
	if err != nil {
		return nil, err
	}

	o.logger.Debug("pipeline stage", "stage", stageExecuting, "handle", ds.Handle, "sql", stmt.Text())
	rs, err := o.exec.Run(ctx, stmt)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("pipeline stage", "stage", stageAnalyzing, "handle", ds.Handle, "rows", len(rs.Rows))
	result := &Result{
		DatasetHandle: ds.Handle,
		Question:      question,
		SQLQuery:      stmt.Text(),
		Table:         rs,
		Stats:         analysis.Describe(rs),
		Insights:      analysis.Insights(rs),
		ChartSpec:     chart.Shape(rs),
	}

	// A forecast runs when the question asks about the future, or when the
	// result itself reads as a time-ordered series.
	if wantsForecast(question) || predict.TimeSeriesShaped(rs) {
		result.Prediction = o.forecast(ctx, validator, ds, rs, question)
		if result.Prediction != nil && result.Prediction.Message != "" {
			result.Insights = append(result.Insights, result.Prediction.Message)
		}
	}

	o.logger.Info("analysis complete",
		"handle", ds.Handle,
		"rows", len(rs.Rows),
		"insights", len(result.Insights),
		"forecast", result.Prediction != nil)

	return result, nil
}

// translateAndValidate runs the translate/validate loop with a single
// retry. A second rejection is terminal and surfaces the rule violation.
func (o *Orchestrator) translateAndValidate(ctx context.Context, validator *sqlguard.Validator, req nlsql.Request) (sqlguard.Validated, error) {
	var lastRule *sqlguard.RuleError

	for attempt := 0; attempt < 2; attempt++ {
		o.logger.Debug("pipeline stage", "stage", stageTranslating, "attempt", attempt+1, "hint", req.Hint)
		candidate, err := o.translator.Translate(ctx, req)
		if err != nil {
			return sqlguard.Validated{}, fmt.Errorf("translating question: %w", err)
		}

		o.logger.Debug("pipeline stage", "stage", stageValidating, "sql", candidate.Text)
		stmt, err := validator.Validate(candidate.Text)
		if err == nil {
			return stmt, nil
		}

		if !errors.As(err, &lastRule) {
			return sqlguard.Validated{}, err
		}
		o.logger.Warn("candidate rejected",
			"attempt", attempt+1,
			"rule", lastRule.Rule,
			"detail", lastRule.Detail)
		req.Hint = lastRule.Detail
	}

	return sqlguard.Validated{}, fmt.Errorf("query validation failed after retry: %w", lastRule)
}

// forecast fits the trend over the full dataset rather than the (possibly
// aggregated or truncated) question result. The scan statement goes through
// the validator like any other.
func (o *Orchestrator) forecast(ctx context.Context, validator *sqlguard.Validator, ds *dataset.Dataset, rs *executor.ResultSet, question string) *predict.Forecast {
	stmt, err := validator.Validate("SELECT * FROM " + ds.Schema.Table)
	if err != nil {
		o.logger.Warn("forecast scan rejected", "error", err)
		return predict.Predict(rs, question)
	}

	full, err := o.exec.Run(ctx, stmt)
	if err != nil {
		o.logger.Warn("forecast scan failed", "error", err)
		return predict.Predict(rs, question)
	}

	return predict.Predict(full, question)
}

// wantsForecast reports whether the question asks about the future.
func wantsForecast(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range forecastKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
