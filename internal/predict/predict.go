// Package predict fits a least-squares trend line over a numeric series and
// projects it one step forward. It is deliberately simple: when the data is
// too thin or no usable columns exist, it says so instead of guessing.
package predict

import (
	"fmt"
	"math"
	"strings"

	"github.com/insight-labs/insightai/internal/dataset"
	"github.com/insight-labs/insightai/internal/executor"
)

// minObservations is the fewest points a trend line can be fit on.
const minObservations = 3

// timeColumnKeywords mark a column as temporal by name when value sniffing
// is inconclusive.
var timeColumnKeywords = []string{"date", "time", "year", "month", "day", "period", "quarter", "week"}

// Forecast is a one-step-ahead projection over a numeric series.
type Forecast struct {
	Metric           string  `json:"metric"`
	PredictedValue   float64 `json:"predicted_value"`
	Confidence       float64 `json:"confidence"`
	Trend            string  `json:"trend"`
	Message          string  `json:"message"`
	InsufficientData bool    `json:"insufficient_data,omitempty"`
}

// Trend labels.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// DetectTimeColumn finds the column ordering the series: first by sniffing
// values for date shapes, then by column name.
func DetectTimeColumn(rs *executor.ResultSet) (string, bool) {
	for _, col := range rs.Columns {
		dateish, total := 0, 0
		for i, row := range rs.Rows {
			if i >= 10 {
				break
			}
			v := row[col]
			if v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				continue
			}
			total++
			if dataset.IsDateValue(s) {
				dateish++
			}
		}
		if total > 0 && float64(dateish)/float64(total) >= 0.7 {
			return col, true
		}
	}

	for _, col := range rs.Columns {
		lower := strings.ToLower(col)
		for _, kw := range timeColumnKeywords {
			if strings.Contains(lower, kw) {
				return col, true
			}
		}
	}

	return "", false
}

// DetectTargetColumn picks the numeric column to forecast: a column named in
// the question wins, otherwise the first numeric column.
func DetectTargetColumn(rs *executor.ResultSet, question string) (string, bool) {
	lower := strings.ToLower(question)

	var firstNumeric string
	for _, col := range rs.Columns {
		if !hasNumericValues(rs, col) {
			continue
		}
		if firstNumeric == "" {
			firstNumeric = col
		}
		if strings.Contains(lower, strings.ToLower(strings.ReplaceAll(col, "_", " "))) ||
			strings.Contains(lower, strings.ToLower(col)) {
			return col, true
		}
	}

	return firstNumeric, firstNumeric != ""
}

// TimeSeriesShaped reports whether the result reads as a time-ordered
// series a trend can be fit on: a time-like column, a numeric target, and
// enough observations.
func TimeSeriesShaped(rs *executor.ResultSet) bool {
	if rs == nil || len(rs.Rows) < minObservations {
		return false
	}
	if _, ok := DetectTimeColumn(rs); !ok {
		return false
	}
	_, ok := DetectTargetColumn(rs, "")
	return ok
}

// Predict fits an ordinary least squares line over the target column in row
// order and projects the next point. The confidence is the fit's R².
func Predict(rs *executor.ResultSet, question string) *Forecast {
	if rs == nil || len(rs.Rows) == 0 {
		return insufficient("", "No data available to forecast.")
	}

	target, ok := DetectTargetColumn(rs, question)
	if !ok {
		return insufficient("", "No numeric column available to forecast.")
	}

	if _, ok := DetectTimeColumn(rs); !ok {
		return insufficient(target, "No time-like column found to order the series.")
	}

	series := make([]float64, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		if f, ok := toFloat(row[target]); ok {
			series = append(series, f)
		}
	}
	if len(series) < minObservations {
		return insufficient(target,
			fmt.Sprintf("Need at least %d observations to fit a trend, got %d.", minObservations, len(series)))
	}

	slope, intercept := fitLine(series)
	next := slope*float64(len(series)) + intercept
	r2 := rSquared(series, slope, intercept)

	trend := TrendStable
	last := series[len(series)-1]
	switch {
	case last != 0 && slope/math.Abs(last) > 0.01:
		trend = TrendIncreasing
	case last != 0 && slope/math.Abs(last) < -0.01:
		trend = TrendDecreasing
	case last == 0 && slope > 0:
		trend = TrendIncreasing
	case last == 0 && slope < 0:
		trend = TrendDecreasing
	}

	return &Forecast{
		Metric:         target,
		PredictedValue: round2(next),
		Confidence:     round2(r2),
		Trend:          trend,
		Message: fmt.Sprintf("Based on the %s trend, %s is projected at %.2f for the next period (confidence %.0f%%).",
			trend, target, next, r2*100),
	}
}

func insufficient(metric, msg string) *Forecast {
	return &Forecast{
		Metric:           metric,
		Trend:            TrendStable,
		Message:          msg,
		InsufficientData: true,
	}
}

// fitLine computes the least-squares slope and intercept of y over the index
// sequence 0..n-1.
func fitLine(y []float64) (slope, intercept float64) {
	n := float64(len(y))

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// rSquared is the coefficient of determination of the fitted line.
func rSquared(y []float64, slope, intercept float64) float64 {
	var meanY float64
	for _, v := range y {
		meanY += v
	}
	meanY /= float64(len(y))

	var ssRes, ssTot float64
	for i, v := range y {
		fit := slope*float64(i) + intercept
		ssRes += (v - fit) * (v - fit)
		ssTot += (v - meanY) * (v - meanY)
	}
	if ssTot == 0 {
		// A perfectly flat series is a perfect fit.
		return 1
	}
	r2 := 1 - ssRes/ssTot
	if r2 < 0 {
		return 0
	}
	return r2
}

func hasNumericValues(rs *executor.ResultSet, col string) bool {
	for _, row := range rs.Rows {
		if _, ok := toFloat(row[col]); ok {
			return true
		}
	}
	return false
}

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
