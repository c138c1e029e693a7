// Package executor runs validated statements against the backing database
// under a row cap and a deadline. It accepts only sqlguard.Validated input,
// so unchecked SQL cannot reach the engine through this package.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/insight-labs/insightai/internal/adapter"
	"github.com/insight-labs/insightai/internal/sqlguard"
)

// Default execution limits.
const (
	DefaultRowCap  = 500
	DefaultTimeout = 15 * time.Second
)

// Querier is the slice of adapter.Adapter the executor needs.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*adapter.Rows, error)
}

// ExecError wraps an engine failure for a specific statement.
type ExecError struct {
	Query string
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("executing query: %v", e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ResultSet holds query output in column order. Rows are keyed by column
// name; Truncated reports that the row cap cut the output short.
type ResultSet struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Truncated bool             `json:"truncated,omitempty"`
}

// Options tune execution limits. Zero values fall back to the defaults.
type Options struct {
	RowCap  int
	Timeout time.Duration
}

// Executor runs validated statements.
type Executor struct {
	db      Querier
	rowCap  int
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an executor. If logger is nil, a discard logger is used.
func New(db Querier, opts Options, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.RowCap <= 0 {
		opts.RowCap = DefaultRowCap
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Executor{
		db:      db,
		rowCap:  opts.RowCap,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// Run executes stmt and collects up to the row cap. Engine failures come
// back as *ExecError.
func (e *Executor) Run(ctx context.Context, stmt sqlguard.Validated) (*ResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.db.Query(ctx, stmt.Text())
	if err != nil {
		return nil, &ExecError{Query: stmt.Text(), Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &ExecError{Query: stmt.Text(), Err: err}
	}

	rs := &ResultSet{
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if len(rs.Rows) >= e.rowCap {
			rs.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ExecError{Query: stmt.Text(), Err: err}
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecError{Query: stmt.Text(), Err: err}
	}

	e.logger.Debug("query executed",
		"rows", len(rs.Rows),
		"truncated", rs.Truncated,
		"duration", time.Since(start))

	return rs, nil
}

// normalizeValue converts driver-specific scan types into plain Go values.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02")
	default:
		return v
	}
}
