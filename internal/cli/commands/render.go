package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/insight-labs/insightai/internal/dataset"
	"github.com/insight-labs/insightai/internal/executor"
	"github.com/insight-labs/insightai/internal/pipeline"
)

func renderResultSet(w io.Writer, rs *executor.ResultSet) {
	if rs == nil || len(rs.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(rs.Columns))
	for i, col := range rs.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, result := range rs.Rows {
		row := make(table.Row, len(rs.Columns))
		for i, col := range rs.Columns {
			row[i] = formatValue(result[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	suffix := ""
	if rs.Truncated {
		suffix = ", truncated"
	}
	_, _ = fmt.Fprintf(w, "(%d rows%s)\n", len(rs.Rows), suffix)
}

func renderSchema(w io.Writer, ds *dataset.Dataset) {
	_, _ = fmt.Fprintf(w, "Dataset %s (%d rows)\n", ds.Handle, ds.Schema.RowCount)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"column", "type"})
	for _, col := range ds.Schema.Columns {
		t.AppendRow(table.Row{col.Name, string(col.Type)})
	}
	t.Render()
}

func renderResult(w io.Writer, result *pipeline.Result) {
	_, _ = fmt.Fprintf(w, "SQL: %s\n\n", result.SQLQuery)
	renderResultSet(w, result.Table)

	if len(result.Insights) > 0 {
		_, _ = fmt.Fprintln(w)
		for _, insight := range result.Insights {
			_, _ = fmt.Fprintf(w, "  * %s\n", insight)
		}
	}

	if result.ChartSpec != nil {
		_, _ = fmt.Fprintf(w, "\nSuggested chart: %s (%s)\n",
			result.ChartSpec.Archetype, result.ChartSpec.Title)
	}
}

func renderResultJSON(w io.Writer, result *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	s := fmt.Sprintf("%v", v)
	return strings.TrimSpace(s)
}
