package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/insight-labs/insightai/internal/adapter"
)

// insertBatchSize bounds how many rows go into a single INSERT statement.
const insertBatchSize = 200

// Store ingests uploaded tabular data into the backing database and resolves
// dataset handles. Datasets are immutable once created; a new upload
// supersedes the current dataset but already-issued handles keep resolving,
// so in-flight analyses complete against the dataset they started with.
type Store struct {
	db     adapter.Adapter
	logger *slog.Logger

	mu       sync.RWMutex
	datasets map[string]*Dataset
	current  string
}

// NewStore creates a dataset store on top of a connected adapter.
// If logger is nil, a discard logger is used.
func NewStore(db adapter.Adapter, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		db:       db,
		logger:   logger,
		datasets: make(map[string]*Dataset),
	}
}

// Ingest parses CSV data from r, infers a typed schema, materializes the
// rows into a fresh backing table, and registers the result as the current
// dataset. The returned Dataset carries the handle used by Analyze calls.
func (s *Store) Ingest(ctx context.Context, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &IngestionError{Stage: StageParse, Err: err}
	}
	if len(records) < 2 || len(records[0]) == 0 {
		return nil, &IngestionError{Stage: StageEmpty, Err: fmt.Errorf("need a header row and at least one data row")}
	}

	header := sanitizeHeader(records[0])
	rows := records[1:]

	columns := make([]Column, len(header))
	for i, name := range header {
		sample := make([]string, 0, min(len(rows), inferSampleLimit))
		for j := 0; j < len(rows) && j < inferSampleLimit; j++ {
			if i < len(rows[j]) {
				sample = append(sample, rows[j][i])
			}
		}
		columns[i] = Column{Name: name, Type: InferColumnType(sample)}
	}

	handle := uuid.NewString()
	table := "ds_" + strings.ReplaceAll(handle[:8], "-", "")

	if err := s.createTable(ctx, table, columns); err != nil {
		return nil, &IngestionError{Stage: StageCreate, Err: err}
	}

	if err := s.insertRows(ctx, table, columns, rows); err != nil {
		return nil, &IngestionError{Stage: StageInsert, Err: err}
	}

	sampleRows := make([]map[string]any, 0, promptSampleLimit)
	for i := 0; i < len(rows) && i < promptSampleLimit; i++ {
		row := make(map[string]any, len(columns))
		for j, col := range columns {
			if j < len(rows[i]) {
				row[col.Name] = convertValue(rows[i][j], col.Type)
			}
		}
		sampleRows = append(sampleRows, row)
	}

	ds := &Dataset{
		Handle: handle,
		Schema: Schema{
			Table:      table,
			Columns:    columns,
			SampleRows: sampleRows,
			RowCount:   len(rows),
		},
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.datasets[handle] = ds
	s.current = handle
	s.mu.Unlock()

	s.logger.Info("dataset ingested",
		"handle", handle,
		"table", table,
		"rows", len(rows),
		"columns", len(columns))

	return ds, nil
}

// Get resolves a dataset handle. An empty handle resolves to the current
// dataset. Returns ErrNoDataset when nothing matches.
func (s *Store) Get(handle string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if handle == "" {
		handle = s.current
	}
	if handle == "" {
		return nil, ErrNoDataset
	}
	ds, ok := s.datasets[handle]
	if !ok {
		return nil, fmt.Errorf("%w: unknown handle %q", ErrNoDataset, handle)
	}
	return ds, nil
}

// Current returns the handle of the most recently ingested dataset.
func (s *Store) Current() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != ""
}

// Adapter exposes the backing adapter for query execution.
func (s *Store) Adapter() adapter.Adapter {
	return s.db
}

func (s *Store) createTable(ctx context.Context, table string, columns []Column) error {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", col.Name, ddlType(col.Type))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	return s.db.Exec(ctx, ddl)
}

func (s *Store) insertRows(ctx context.Context, table string, columns []Column, rows [][]string) error {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}

	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		batch := rows[start:end]

		var (
			tuples []string
			args   []any
		)
		n := 1
		for _, row := range batch {
			ph := make([]string, len(columns))
			for i, col := range columns {
				ph[i] = s.db.Placeholder(n)
				n++
				var v any
				if i < len(row) {
					v = convertValue(row[i], col.Type)
				}
				args = append(args, v)
			}
			tuples = append(tuples, "("+strings.Join(ph, ", ")+")")
		}

		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, strings.Join(names, ", "), strings.Join(tuples, ", "))
		if err := s.db.Exec(ctx, stmt, args...); err != nil {
			return err
		}
	}

	return nil
}
