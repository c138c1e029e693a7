package analysis

import (
	"fmt"

	"github.com/insight-labs/insightai/internal/executor"
)

// insightColumnLimit bounds how many numeric columns get per-column
// insights, so wide results do not drown the reader.
const insightColumnLimit = 2

// trendRatio is the relative change between the first and second half of a
// series before we call it rising or declining.
const trendRatio = 0.10

// Insights produces short plain-language observations about a result set.
func Insights(rs *executor.ResultSet) []string {
	if rs == nil || len(rs.Rows) == 0 {
		return []string{"The query returned no rows."}
	}

	insights := []string{
		fmt.Sprintf("The result has %d rows and %d columns.", len(rs.Rows), len(rs.Columns)),
	}

	label := labelColumn(rs)

	numericSeen := 0
	for _, col := range rs.Columns {
		values := numericColumn(rs, col)
		if len(values) == 0 {
			continue
		}
		numericSeen++
		if numericSeen > insightColumnLimit {
			break
		}

		if top, ok := topContributor(rs, label, col); ok {
			insights = append(insights, top)
		} else {
			stats := describeValues(values)
			insights = append(insights, fmt.Sprintf("%s ranges from %.2f to %.2f with a mean of %.2f.",
				col, stats.Min, stats.Max, stats.Mean))
		}

		if trend, ok := halfTrend(col, values); ok {
			insights = append(insights, trend)
		}
	}

	return insights
}

// labelColumn picks the first non-numeric column, used to name the top
// contributor.
func labelColumn(rs *executor.ResultSet) string {
	for _, col := range rs.Columns {
		numeric := false
		for _, row := range rs.Rows {
			if row[col] == nil {
				continue
			}
			if _, ok := toFloat(row[col]); ok {
				numeric = true
			}
			break
		}
		if !numeric {
			return col
		}
	}
	return ""
}

// topContributor names the row with the largest value in col and its share
// of the column total.
func topContributor(rs *executor.ResultSet, label, col string) (string, bool) {
	if label == "" {
		return "", false
	}

	var (
		total    float64
		topVal   float64
		topLabel string
		found    bool
	)
	for _, row := range rs.Rows {
		v, ok := toFloat(row[col])
		if !ok {
			continue
		}
		total += v
		if !found || v > topVal {
			topVal = v
			topLabel = fmt.Sprintf("%v", row[label])
			found = true
		}
	}
	if !found || total <= 0 {
		return "", false
	}

	pct := topVal / total * 100
	return fmt.Sprintf("%s has the highest %s (%.2f), accounting for %.1f%% of the total.",
		topLabel, col, topVal, pct), true
}

// halfTrend compares the mean of the second half of the series against the
// first half and reports a direction when the change exceeds trendRatio.
func halfTrend(col string, values []float64) (string, bool) {
	if len(values) < 4 {
		return "", false
	}

	mid := len(values) / 2
	firstMean := mean(values[:mid])
	secondMean := mean(values[mid:])
	if firstMean == 0 {
		return "", false
	}

	change := (secondMean - firstMean) / firstMean
	switch {
	case change > trendRatio:
		return fmt.Sprintf("%s is trending upward: the second half of the results averages %.1f%% higher than the first.",
			col, change*100), true
	case change < -trendRatio:
		return fmt.Sprintf("%s is trending downward: the second half of the results averages %.1f%% lower than the first.",
			col, -change*100), true
	default:
		return "", false
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
