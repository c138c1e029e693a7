package sqlguard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insight-labs/insightai/internal/dataset"
)

func newTestValidator() *Validator {
	return New(dataset.Schema{
		Table: "ds_abc12345",
		Columns: []dataset.Column{
			{Name: "region", Type: dataset.TypeText},
			{Name: "sales", Type: dataset.TypeFloat},
			{Name: "order_date", Type: dataset.TypeDate},
		},
	})
}

func TestValidate_AcceptsReadOnlySelects(t *testing.T) {
	v := newTestValidator()

	statements := []string{
		"SELECT region, SUM(sales) AS total_sales FROM ds_abc12345 GROUP BY region",
		"select * from ds_abc12345",
		"SELECT region, sales FROM ds_abc12345 WHERE sales > 100 ORDER BY sales DESC LIMIT 10",
		"SELECT COUNT(*) FROM ds_abc12345",
		"SELECT region FROM ds_abc12345 WHERE region = 'north'",
		"SELECT CAST(sales AS INTEGER) FROM ds_abc12345",
		"SELECT region, AVG(sales) AS avg_sales FROM ds_abc12345 GROUP BY region HAVING AVG(sales) > 50",
		"SELECT CASE WHEN sales > 100 THEN 'high' ELSE 'low' END AS bucket FROM ds_abc12345",
	}

	for _, stmt := range statements {
		t.Run(stmt, func(t *testing.T) {
			got, err := v.Validate(stmt)
			require.NoError(t, err)
			assert.Equal(t, stmt, got.Text())
		})
	}
}

func TestValidate_TrimsTrailingSemicolon(t *testing.T) {
	v := newTestValidator()

	got, err := v.Validate("SELECT region FROM ds_abc12345;\n")
	require.NoError(t, err)
	assert.Equal(t, "SELECT region FROM ds_abc12345", got.Text())
}

func TestValidate_Rejections(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name string
		sql  string
		rule string
	}{
		{"empty", "   ;  ", RuleEmptyStatement},
		{"drop table", "DROP TABLE ds_abc12345", RuleDeniedKeyword},
		{"lowercase drop", "drop table ds_abc12345", RuleDeniedKeyword},
		{"mixed case delete", "DeLeTe FROM ds_abc12345", RuleDeniedKeyword},
		{"insert", "INSERT INTO ds_abc12345 VALUES (1)", RuleDeniedKeyword},
		{"update", "UPDATE ds_abc12345 SET sales = 0", RuleDeniedKeyword},
		{"pragma", "PRAGMA table_info(ds_abc12345)", RuleDeniedKeyword},
		{"attach", "ATTACH 'x.db' AS other", RuleDeniedKeyword},
		{"keyword inside comment", "SELECT region FROM ds_abc12345 -- then DROP everything", RuleDeniedKeyword},
		{"keyword split by comment", "DR/*x*/OP TABLE ds_abc12345", RuleDeniedKeyword},
		{"stacked statements with write", "DROP TABLE ds_abc12345; SELECT 1", RuleDeniedKeyword},
		{"stacked selects", "SELECT region FROM ds_abc12345; SELECT sales FROM ds_abc12345", RuleMultipleStatements},
		{"cte", "WITH t AS (SELECT region FROM ds_abc12345) SELECT * FROM t", RuleNotSelect},
		{"explain", "EXPLAIN SELECT region FROM ds_abc12345", RuleNotSelect},
		{"unknown table", "SELECT region FROM orders", RuleUnknownTable},
		{"join against foreign table", "SELECT region FROM ds_abc12345 JOIN users ON 1=1", RuleUnknownTable},
		{"file path as table", "SELECT * FROM '/tmp/secret.csv'", RuleUnknownTable},
		{"url as table", "SELECT * FROM 'https://example.com/data.parquet'", RuleUnknownTable},
		{"double quoted path as table", `SELECT * FROM "/etc/passwd"`, RuleUnknownTable},
		{"join against file path", "SELECT region FROM ds_abc12345 JOIN 'data.csv' ON 1=1", RuleUnknownTable},
		{"dangling from", "SELECT region FROM", RuleUnknownTable},
		{"unknown column", "SELECT revenue FROM ds_abc12345", RuleUnknownColumn},
		{"unknown column in where", "SELECT region FROM ds_abc12345 WHERE profit > 0", RuleUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.sql)
			require.Error(t, err)

			var ruleErr *RuleError
			require.True(t, errors.As(err, &ruleErr), "expected *RuleError, got %T", err)
			assert.Equal(t, tt.rule, ruleErr.Rule)
		})
	}
}

func TestValidate_SemicolonInsideLiteralIsFine(t *testing.T) {
	v := newTestValidator()

	_, err := v.Validate("SELECT region FROM ds_abc12345 WHERE region = 'a;b'")
	assert.NoError(t, err)
}

func TestValidate_PathLiteralInWhereIsFine(t *testing.T) {
	// Only a quoted value in table position is treated as a file scan;
	// path-shaped strings elsewhere are ordinary literals.
	v := newTestValidator()

	_, err := v.Validate("SELECT region FROM ds_abc12345 WHERE region = '/tmp/notes.csv'")
	assert.NoError(t, err)
}

func TestValidate_DenyKeywordInsideLiteralStillRejected(t *testing.T) {
	// Literals are not exempt from the keyword scan. Rejecting a harmless
	// query that mentions a write verb in a string is the accepted cost of
	// keeping the scan conservative.
	v := newTestValidator()

	_, err := v.Validate("SELECT region FROM ds_abc12345 WHERE region = 'drop zone'")
	var ruleErr *RuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, RuleDeniedKeyword, ruleErr.Rule)
}

func TestValidate_AliasesAreUsable(t *testing.T) {
	v := newTestValidator()

	_, err := v.Validate("SELECT region, SUM(sales) AS total FROM ds_abc12345 GROUP BY region ORDER BY total DESC")
	assert.NoError(t, err)
}

func TestValidate_QuotedIdentifiers(t *testing.T) {
	v := newTestValidator()

	_, err := v.Validate(`SELECT "region" FROM ds_abc12345`)
	assert.NoError(t, err)

	_, err = v.Validate(`SELECT "secret_col" FROM ds_abc12345`)
	var ruleErr *RuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, RuleUnknownColumn, ruleErr.Rule)
}

func TestValidate_TableNameCaseInsensitive(t *testing.T) {
	v := newTestValidator()

	_, err := v.Validate("SELECT region FROM DS_ABC12345")
	assert.NoError(t, err)
}

func TestValidatedZeroValueIsEmpty(t *testing.T) {
	var v Validated
	assert.Empty(t, v.Text())
}
