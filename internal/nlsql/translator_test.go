package nlsql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/insight-labs/insightai/internal/dataset"
)

func TestCleanSQL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"plain statement",
			"SELECT region FROM ds_abc",
			"SELECT region FROM ds_abc",
		},
		{
			"fenced sql block",
			"```sql\nSELECT region FROM ds_abc\n```",
			"SELECT region FROM ds_abc",
		},
		{
			"bare fence",
			"```\nSELECT 1\n```",
			"SELECT 1",
		},
		{
			"leading prose",
			"Here is the query you asked for:\nSELECT region FROM ds_abc",
			"SELECT region FROM ds_abc",
		},
		{
			"trailing semicolon",
			"SELECT region FROM ds_abc;",
			"SELECT region FROM ds_abc",
		},
		{
			"prose and fence combined",
			"Sure! ```sql\nSELECT SUM(sales) FROM ds_abc;\n``` Let me know if you need more.",
			"SELECT SUM(sales) FROM ds_abc",
		},
		{
			"no select at all",
			"I cannot answer that question.",
			"I cannot answer that question.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanSQL(tt.raw))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	req := Request{
		Question: "total sales by region",
		Schema: dataset.Schema{
			Table: "ds_abc12345",
			Columns: []dataset.Column{
				{Name: "region", Type: dataset.TypeText},
				{Name: "sales", Type: dataset.TypeFloat},
			},
			SampleRows: []map[string]any{
				{"region": "north", "sales": 100.5},
			},
		},
	}

	prompt := BuildPrompt(req)
	assert.Contains(t, prompt, "ds_abc12345")
	assert.Contains(t, prompt, "region (text)")
	assert.Contains(t, prompt, "sales (float)")
	assert.Contains(t, prompt, "north")
	assert.NotContains(t, prompt, "previous attempt")
}

func TestBuildPrompt_WithHint(t *testing.T) {
	req := Request{
		Question: "total sales",
		Schema:   dataset.Schema{Table: "ds_x"},
		Hint:     `identifier "revenue" is not in the schema`,
	}

	prompt := BuildPrompt(req)
	assert.Contains(t, prompt, "previous attempt was rejected")
	assert.Contains(t, prompt, "revenue")
}
