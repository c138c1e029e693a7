// Package sqlguard statically verifies model-generated SQL before execution.
// It is pure and deterministic: no I/O, no engine round-trips. The guard is
// the last line of defense against a generative model producing unsafe or
// malformed SQL, so it rejects on ambiguity rather than sanitizing.
package sqlguard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/insight-labs/insightai/internal/dataset"
)

// Validation rules, reported back on rejection so the orchestrator can
// re-prompt with the specific failure.
const (
	RuleEmptyStatement     = "empty_statement"
	RuleMultipleStatements = "multiple_statements"
	RuleNotSelect          = "not_select"
	RuleDeniedKeyword      = "denied_keyword"
	RuleUnknownTable       = "unknown_table"
	RuleUnknownColumn      = "unknown_column"
)

// RuleError reports why a candidate statement was rejected.
type RuleError struct {
	Rule   string
	Detail string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("sql rejected (%s): %s", e.Rule, e.Detail)
}

// Validated is a statement that passed every check. Only the validator can
// construct one; the executor accepts nothing else.
type Validated struct {
	text string
}

// Text returns the validated statement text.
func (v Validated) Text() string { return v.text }

func (v Validated) String() string { return v.text }

var denyList = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "CREATE",
	"ATTACH", "DETACH", "PRAGMA", "TRUNCATE", "EXEC", "EXECUTE",
	"MERGE", "GRANT", "REVOKE", "VACUUM", "COPY",
}

var (
	denyPattern    = regexp.MustCompile(`(?i)\b(` + strings.Join(denyList, "|") + `)\b`)
	lineComment    = regexp.MustCompile(`--[^\n]*`)
	blockComment   = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLiteral  = regexp.MustCompile(`'(?:[^']|'')*'`)
	quotedIdent    = regexp.MustCompile(`"([^"]*)"`)
	tableRefs      = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][a-zA-Z0-9_.]*)`)
	fromJoin       = regexp.MustCompile(`(?i)\b(?:from|join)\b`)
	quotedSource   = regexp.MustCompile(`(?i)\b(?:from|join)\s*['"` + "`" + `]`)
	aliasDefs      = regexp.MustCompile(`(?i)\bas\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	identifierLike = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
)

// keywordAllowList covers SQL keywords, aggregate and scalar functions, and
// cast targets that may appear in a read-only query. Anything outside this
// set must be a schema column, the dataset table, or an AS alias.
var keywordAllowList = buildAllowList(
	"select", "from", "where", "group", "order", "by", "having", "limit",
	"offset", "as", "and", "or", "not", "in", "is", "null", "like",
	"between", "distinct", "asc", "desc", "case", "when", "then", "else",
	"end", "on", "inner", "left", "right", "full", "outer", "join",
	"union", "all", "exists", "any", "over", "partition", "filter",
	"true", "false",
	// aggregates and window functions
	"sum", "avg", "count", "min", "max", "median", "stddev", "stddev_pop",
	"stddev_samp", "variance", "var_pop", "row_number", "rank", "dense_rank",
	// scalar functions
	"abs", "round", "floor", "ceil", "ceiling", "sqrt", "power", "mod",
	"coalesce", "nullif", "ifnull", "iif", "cast", "upper", "lower",
	"length", "substr", "substring", "trim", "concat", "strftime",
	"extract", "year", "month", "day", "date_trunc", "now", "current_date",
	"string_agg", "group_concat",
	// cast targets
	"integer", "int", "bigint", "float", "double", "real", "numeric",
	"decimal", "varchar", "text", "date", "precision",
)

func buildAllowList(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Validator checks candidate statements against a single dataset schema.
type Validator struct {
	table   string
	columns map[string]struct{}
}

// New creates a validator bound to the given schema.
func New(schema dataset.Schema) *Validator {
	cols := make(map[string]struct{}, len(schema.Columns))
	for _, c := range schema.Columns {
		cols[strings.ToLower(c.Name)] = struct{}{}
	}
	return &Validator{
		table:   strings.ToLower(schema.Table),
		columns: cols,
	}
}

// Validate checks a candidate statement. On success it returns the Validated
// form accepted by the executor; on rejection it returns a *RuleError naming
// the violated rule.
func (v *Validator) Validate(candidate string) (Validated, error) {
	text := strings.TrimSpace(candidate)
	text = strings.TrimRight(text, "; \t\r\n")
	if text == "" {
		return Validated{}, &RuleError{Rule: RuleEmptyStatement, Detail: "statement is empty"}
	}

	// Deny-listed keywords are rejected wherever they appear, even inside
	// comments. Comments are also stripped before a second scan so a
	// keyword split across a comment cannot slip through.
	if m := denyPattern.FindString(text); m != "" {
		return Validated{}, &RuleError{Rule: RuleDeniedKeyword, Detail: fmt.Sprintf("keyword %q is not allowed", strings.ToUpper(m))}
	}

	// Collapsing comments to nothing catches keywords split across a
	// comment, e.g. DR/*x*/OP.
	collapsed := lineComment.ReplaceAllString(blockComment.ReplaceAllString(text, ""), "")
	if m := denyPattern.FindString(collapsed); m != "" {
		return Validated{}, &RuleError{Rule: RuleDeniedKeyword, Detail: fmt.Sprintf("keyword %q is not allowed", strings.ToUpper(m))}
	}

	stripped := stripComments(text)

	// A table source must be a bare identifier. DuckDB treats a quoted
	// source after FROM/JOIN as a file path or URL scan, so it is rejected
	// here, before literals are blanked out of the scan text.
	if quotedSource.MatchString(stripped) {
		return Validated{}, &RuleError{Rule: RuleUnknownTable, Detail: "table source must be the dataset table, not a quoted path"}
	}

	scannable := stringLiteral.ReplaceAllString(stripped, " ")
	if strings.Contains(scannable, ";") {
		return Validated{}, &RuleError{Rule: RuleMultipleStatements, Detail: "only a single statement is allowed"}
	}

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(scannable)), "SELECT") {
		return Validated{}, &RuleError{Rule: RuleNotSelect, Detail: "statement must be a single SELECT"}
	}

	if err := v.checkTables(scannable); err != nil {
		return Validated{}, err
	}
	if err := v.checkIdentifiers(scannable); err != nil {
		return Validated{}, err
	}

	return Validated{text: text}, nil
}

func (v *Validator) checkTables(scannable string) error {
	refs := tableRefs.FindAllStringSubmatch(scannable, -1)
	if len(fromJoin.FindAllString(scannable, -1)) != len(refs) {
		return &RuleError{Rule: RuleUnknownTable, Detail: "every FROM and JOIN must name the dataset table"}
	}
	for _, m := range refs {
		ref := strings.ToLower(m[1])
		if ref != v.table {
			return &RuleError{Rule: RuleUnknownTable, Detail: fmt.Sprintf("table %q is not the dataset table", m[1])}
		}
	}
	return nil
}

func (v *Validator) checkIdentifiers(scannable string) error {
	allowed := make(map[string]struct{}, len(v.columns)+8)
	for c := range v.columns {
		allowed[c] = struct{}{}
	}
	allowed[v.table] = struct{}{}
	for _, m := range aliasDefs.FindAllStringSubmatch(scannable, -1) {
		allowed[strings.ToLower(m[1])] = struct{}{}
	}

	// Double-quoted identifiers are validated against the schema, then the
	// remaining bare identifiers are checked token by token.
	for _, m := range quotedIdent.FindAllStringSubmatch(scannable, -1) {
		name := strings.ToLower(m[1])
		if _, ok := allowed[name]; !ok {
			return &RuleError{Rule: RuleUnknownColumn, Detail: fmt.Sprintf("identifier %q is not in the schema", m[1])}
		}
	}
	scannable = quotedIdent.ReplaceAllString(scannable, " ")

	for _, tok := range identifierLike.FindAllString(scannable, -1) {
		lower := strings.ToLower(tok)
		if _, ok := keywordAllowList[lower]; ok {
			continue
		}
		if _, ok := allowed[lower]; ok {
			continue
		}
		return &RuleError{Rule: RuleUnknownColumn, Detail: fmt.Sprintf("identifier %q is not in the schema", tok)}
	}
	return nil
}

// stripComments removes line and block comments.
func stripComments(s string) string {
	s = blockComment.ReplaceAllString(s, " ")
	s = lineComment.ReplaceAllString(s, " ")
	return s
}
