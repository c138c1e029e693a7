// Package chart picks a visualization shape for a query result. It emits a
// renderer-neutral spec naming the archetype and the columns to plot.
package chart

import (
	"fmt"
	"strings"

	"github.com/insight-labs/insightai/internal/dataset"
	"github.com/insight-labs/insightai/internal/executor"
)

// Archetypes a result can be shaped into.
const (
	ArchetypeTrend                 = "trend"
	ArchetypePartOfWhole           = "part_of_whole"
	ArchetypeCategoricalComparison = "categorical_comparison"
	ArchetypeHistogram             = "histogram"
)

// partOfWholeMaxRows is the most slices a part-of-whole chart stays
// readable at.
const partOfWholeMaxRows = 6

// trendRowThreshold is the row count beyond which a categorical comparison
// reads better as a line.
const trendRowThreshold = 15

// Spec describes what to draw. YColumns lists every numeric series.
type Spec struct {
	Archetype string   `json:"archetype"`
	XColumn   string   `json:"x_column"`
	YColumns  []string `json:"y_columns"`
	Title     string   `json:"title"`
}

// Shape picks an archetype for the result set. Returns nil when there is
// nothing to draw.
func Shape(rs *executor.ResultSet) *Spec {
	if rs == nil || len(rs.Rows) == 0 || len(rs.Columns) == 0 {
		return nil
	}

	numeric, categorical := splitColumns(rs)
	if len(numeric) == 0 {
		return nil
	}

	// A lone numeric column has no axis to compare against; show its
	// distribution.
	if len(rs.Columns) == 1 {
		col := rs.Columns[0]
		return &Spec{
			Archetype: ArchetypeHistogram,
			XColumn:   col,
			YColumns:  []string{col},
			Title:     fmt.Sprintf("Distribution of %s", col),
		}
	}

	x := rs.Columns[0]
	if len(categorical) > 0 {
		x = categorical[0]
	}
	y := withoutColumn(numeric, x)
	if len(y) == 0 {
		y = numeric
	}

	if isTemporal(rs, x) {
		return &Spec{
			Archetype: ArchetypeTrend,
			XColumn:   x,
			YColumns:  y,
			Title:     fmt.Sprintf("%s over %s", strings.Join(y, ", "), x),
		}
	}

	if len(rs.Rows) > trendRowThreshold {
		return &Spec{
			Archetype: ArchetypeTrend,
			XColumn:   x,
			YColumns:  y,
			Title:     fmt.Sprintf("%s by %s", strings.Join(y, ", "), x),
		}
	}

	if len(categorical) == 1 && len(y) == 1 && len(rs.Rows) <= partOfWholeMaxRows {
		return &Spec{
			Archetype: ArchetypePartOfWhole,
			XColumn:   x,
			YColumns:  y,
			Title:     fmt.Sprintf("%s by %s", y[0], x),
		}
	}

	return &Spec{
		Archetype: ArchetypeCategoricalComparison,
		XColumn:   x,
		YColumns:  y,
		Title:     fmt.Sprintf("%s by %s", strings.Join(y, ", "), x),
	}
}

// splitColumns partitions columns into numeric and categorical by sampling
// their values.
func splitColumns(rs *executor.ResultSet) (numeric, categorical []string) {
	for _, col := range rs.Columns {
		if hasNumeric(rs, col) {
			numeric = append(numeric, col)
		} else {
			categorical = append(categorical, col)
		}
	}
	return numeric, categorical
}

func hasNumeric(rs *executor.ResultSet, col string) bool {
	for _, row := range rs.Rows {
		v := row[col]
		if v == nil {
			continue
		}
		switch v.(type) {
		case float64, float32, int, int32, int64, uint64:
			return true
		default:
			return false
		}
	}
	return false
}

// isTemporal reports whether a column's string values look like dates.
func isTemporal(rs *executor.ResultSet, col string) bool {
	dateish, total := 0, 0
	for i, row := range rs.Rows {
		if i >= 10 {
			break
		}
		s, ok := row[col].(string)
		if !ok {
			continue
		}
		total++
		if dataset.IsDateValue(s) {
			dateish++
		}
	}
	return total > 0 && float64(dateish)/float64(total) >= 0.7
}

func withoutColumn(cols []string, drop string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}
