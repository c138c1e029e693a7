// Package analysis derives descriptive statistics and plain-language
// insights from query result sets. Everything here is pure computation over
// an executor.ResultSet.
package analysis

import (
	"math"
	"sort"

	"github.com/insight-labs/insightai/internal/executor"
)

// ColumnStats summarizes one numeric column.
type ColumnStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Sum    float64 `json:"sum"`
}

// Describe computes stats for every numeric column in the result set, keyed
// by column name. Columns with no numeric values are skipped.
func Describe(rs *executor.ResultSet) map[string]ColumnStats {
	out := make(map[string]ColumnStats)
	if rs == nil {
		return out
	}

	for _, col := range rs.Columns {
		values := numericColumn(rs, col)
		if len(values) == 0 {
			continue
		}
		out[col] = describeValues(values)
	}
	return out
}

func describeValues(values []float64) ColumnStats {
	n := len(values)

	var sum float64
	min, max := values[0], values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return ColumnStats{
		Count:  n,
		Mean:   round2(mean),
		Median: round2(median),
		Std:    round2(math.Sqrt(variance)),
		Min:    round2(min),
		Max:    round2(max),
		Sum:    round2(sum),
	}
}

// numericColumn extracts the numeric values of a column in row order,
// skipping nulls and non-numeric cells.
func numericColumn(rs *executor.ResultSet, col string) []float64 {
	values := make([]float64, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		if f, ok := toFloat(row[col]); ok {
			values = append(values, f)
		}
	}
	return values
}

// toFloat coerces database scan values into float64.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
