package dataset

import (
	"errors"
	"fmt"
)

// ErrNoDataset is returned when a handle does not resolve to an active dataset.
var ErrNoDataset = errors.New("no active dataset")

// Ingestion stages, used to distinguish input problems from engine failures.
const (
	StageParse  = "parse"
	StageEmpty  = "empty"
	StageCreate = "create"
	StageInsert = "insert"
)

// IngestionError describes a failed upload. Stage separates unparsable or
// empty input from backing-table creation failures, which are engine-fatal.
type IngestionError struct {
	Stage string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed (%s): %v", e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}
