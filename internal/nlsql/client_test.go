package nlsql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insight-labs/insightai/internal/dataset"
	"github.com/insight-labs/insightai/internal/testutil"
)

func testRequest() Request {
	return Request{
		Question: "total sales by region",
		Schema: dataset.Schema{
			Table: "ds_abc12345",
			Columns: []dataset.Column{
				{Name: "region", Type: dataset.TypeText},
				{Name: "sales", Type: dataset.TypeFloat},
			},
		},
	}
}

func TestChatClient_Translate(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role":    "assistant",
					"content": "```sql\nSELECT region, SUM(sales) FROM ds_abc12345 GROUP BY region;\n```",
				}},
			},
		})
	}))
	defer srv.Close()

	client := NewChatClient(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	}, testutil.NewTestLogger(t))

	got, err := client.Translate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "SELECT region, SUM(sales) FROM ds_abc12345 GROUP BY region", got.Text)

	assert.Equal(t, DefaultModel, captured.Model)
	assert.Equal(t, DefaultMaxTokens, captured.MaxTokens)
	assert.InDelta(t, DefaultTemperature, captured.Temperature, 1e-9)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "ds_abc12345")
	assert.Equal(t, "total sales by region", captured.Messages[1].Content)
}

func TestChatClient_NoAPIKey(t *testing.T) {
	client := NewChatClient(Config{}, nil)
	assert.False(t, client.Configured())

	_, err := client.Translate(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChatClient_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client := NewChatClient(Config{BaseURL: srv.URL, APIKey: "k"}, testutil.NewTestLogger(t))

	_, err := client.Translate(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChatClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewChatClient(Config{BaseURL: srv.URL, APIKey: "k"}, nil)

	_, err := client.Translate(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChatClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewChatClient(Config{BaseURL: srv.URL, APIKey: "k"}, nil)

	_, err := client.Translate(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
}
