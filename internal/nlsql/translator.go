// Package nlsql turns natural-language questions into candidate SQL via a
// chat-completion model. Candidates are untrusted text; callers must pass
// them through sqlguard before execution.
package nlsql

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/insight-labs/insightai/internal/dataset"
)

// ErrUnavailable marks translation failures caused by the model backend
// (network errors, auth, rate limits) rather than by the question itself.
var ErrUnavailable = errors.New("translation backend unavailable")

// Request carries a question plus the schema context the model needs.
// Hint is an optional correction from a previous rejected candidate.
type Request struct {
	Question string
	Schema   dataset.Schema
	Hint     string
}

// Candidate is raw model output cleaned down to a single SQL statement.
// It has not been validated.
type Candidate struct {
	Text string
}

// Translator produces a SQL candidate for a question.
type Translator interface {
	Translate(ctx context.Context, req Request) (Candidate, error)
}

// BuildPrompt renders the system prompt handed to the model: table name,
// typed columns, a few sample rows, and the output contract.
func BuildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a SQL generator. Translate the user's question into exactly one SQL SELECT statement.\n\n")
	fmt.Fprintf(&b, "Table: %s\n", req.Schema.Table)
	b.WriteString("Columns:\n")
	for _, col := range req.Schema.Columns {
		fmt.Fprintf(&b, "  - %s (%s)\n", col.Name, col.Type)
	}

	if len(req.Schema.SampleRows) > 0 {
		b.WriteString("Sample rows:\n")
		names := req.Schema.ColumnNames()
		for _, row := range req.Schema.SampleRows {
			vals := make([]string, len(names))
			for i, name := range names {
				vals[i] = fmt.Sprintf("%v", row[name])
			}
			fmt.Fprintf(&b, "  %s\n", strings.Join(vals, ", "))
		}
	}

	b.WriteString("\nRules:\n")
	fmt.Fprintf(&b, "  - Query only the table %s, using only the columns listed above.\n", req.Schema.Table)
	b.WriteString("  - Output a single SELECT statement and nothing else: no explanation, no markdown fences.\n")
	b.WriteString("  - Never write data: no INSERT, UPDATE, DELETE, DROP, or DDL of any kind.\n")

	if req.Hint != "" {
		fmt.Fprintf(&b, "\nYour previous attempt was rejected: %s. Produce a corrected statement.\n", req.Hint)
	}

	return b.String()
}

var (
	codeFence  = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	selectFrom = regexp.MustCompile(`(?is)\b(select\b.*)$`)
)

// CleanSQL strips markdown fences and surrounding prose from model output,
// keeping the statement from its first SELECT onward.
func CleanSQL(raw string) string {
	text := strings.TrimSpace(raw)

	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if m := selectFrom.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	text = strings.TrimSpace(text)
	text = strings.TrimRight(text, ";")
	return strings.TrimSpace(text)
}
