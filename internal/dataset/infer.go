package dataset

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// inferSampleLimit bounds how many rows are examined per column when
	// inferring types.
	inferSampleLimit = 100

	// inferThreshold is the fraction of sampled non-null values that must
	// parse as a type for the column to be typed as it.
	inferThreshold = 0.7

	// promptSampleLimit bounds how many rows are kept as prompting context.
	promptSampleLimit = 5
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}`), // YYYY-MM-DD
	regexp.MustCompile(`^\d{2}[-/]\d{2}[-/]\d{4}$`), // DD-MM-YYYY
	regexp.MustCompile(`^\d{4}[-/]\d{2}$`),          // YYYY-MM
	regexp.MustCompile(`^\d{4}$`),                   // bare year
	regexp.MustCompile(`(?i)^(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`), // month names
}

// IsDateValue reports whether a raw string looks like a date, a bare year,
// a year-month pair, or a month-name token.
func IsDateValue(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, p := range datePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func parsesAsInteger(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

func parsesAsFloat(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// InferColumnType classifies a column from a sample of its raw values.
// Parse attempts run in priority order integer -> float -> date; a column is
// typed T only when at least inferThreshold of the sampled non-null values
// parse as T, otherwise it falls back to text.
func InferColumnType(values []string) ColumnType {
	if len(values) > inferSampleLimit {
		values = values[:inferSampleLimit]
	}

	var nonNull, ints, floats, dates int
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		nonNull++
		if parsesAsInteger(v) {
			ints++
		}
		if parsesAsFloat(v) {
			floats++
		}
		if IsDateValue(v) {
			dates++
		}
	}

	if nonNull == 0 {
		return TypeText
	}

	need := int(inferThreshold*float64(nonNull) + 0.5)
	if need < 1 {
		need = 1
	}

	switch {
	case ints >= need:
		return TypeInteger
	case floats >= need:
		return TypeFloat
	case dates >= need:
		return TypeDate
	default:
		return TypeText
	}
}

var identifierCleaner = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeColumnName normalizes a raw header into a safe SQL identifier:
// lowercased, non-alphanumeric runs replaced with underscores.
func SanitizeColumnName(raw string) string {
	name := strings.ToLower(identifierCleaner.ReplaceAllString(strings.TrimSpace(raw), "_"))
	name = strings.Trim(name, "_")
	if name == "" {
		return "column"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "c_" + name
	}
	return name
}

// sanitizeHeader sanitizes every header cell and deduplicates collisions by
// appending a numeric suffix.
func sanitizeHeader(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		name := SanitizeColumnName(h)
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "_" + strconv.Itoa(n+1)
		}
		if _, ok := seen[name]; !ok {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

// convertValue converts a raw cell into the Go value matching the column's
// inferred type. Empty cells become nil; unparsable cells fall back to the
// raw string so the row is preserved rather than dropped.
func convertValue(raw string, t ColumnType) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	switch t {
	case TypeInteger:
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
	case TypeFloat:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return raw
}

// ddlType maps an inferred column type to the engine DDL type. Dates keep
// their source text form since recognized formats include bare years and
// month names that engines cannot cast uniformly.
func ddlType(t ColumnType) string {
	switch t {
	case TypeInteger:
		return "BIGINT"
	case TypeFloat:
		// DOUBLE PRECISION is understood by DuckDB, SQLite, and Postgres alike.
		return "DOUBLE PRECISION"
	default:
		return "VARCHAR"
	}
}
