package nlsql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Defaults for the hosted chat-completion backend.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.1
)

// Config holds connection settings for an OpenAI-compatible
// chat-completions endpoint.
type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	return c
}

// ChatClient is a Translator backed by an OpenAI-compatible chat API.
type ChatClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewChatClient creates a translator client. If logger is nil, a discard
// logger is used.
func NewChatClient(cfg Config, logger *slog.Logger) *ChatClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg = cfg.withDefaults()
	return &ChatClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Configured reports whether the client has credentials to reach the
// backend.
func (c *ChatClient) Configured() bool {
	return c.cfg.APIKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Translate sends the question and schema context to the model and returns
// the cleaned SQL candidate. Backend failures wrap ErrUnavailable.
func (c *ChatClient) Translate(ctx context.Context, req Request) (Candidate, error) {
	if c.cfg.APIKey == "" {
		return Candidate{}, fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: BuildPrompt(req)},
			{Role: "user", Content: req.Question},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Candidate{}, fmt.Errorf("marshaling chat request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Candidate{}, fmt.Errorf("building chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("chat completion failed",
			"status", resp.StatusCode,
			"model", c.cfg.Model)
		return Candidate{}, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Candidate{}, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	if parsed.Error != nil {
		return Candidate{}, fmt.Errorf("%w: %s", ErrUnavailable, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Candidate{}, fmt.Errorf("%w: response has no choices", ErrUnavailable)
	}

	text := CleanSQL(parsed.Choices[0].Message.Content)
	c.logger.Debug("chat completion",
		"model", c.cfg.Model,
		"duration", time.Since(start),
		"sql", text)

	return Candidate{Text: text}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
