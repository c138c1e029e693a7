// Package config provides configuration management for the insightai
// service and CLI. Values are layered from defaults, an insightai.yaml
// file, INSIGHTAI_-prefixed environment variables, and CLI flags, in
// ascending precedence.
package config

import (
	"time"

	"github.com/insight-labs/insightai/internal/adapter"
)

// Config holds all service configuration.
type Config struct {
	Verbose  bool           `koanf:"verbose"`
	Target   *TargetConfig  `koanf:"target"`
	LLM      LLMConfig      `koanf:"llm"`
	Executor ExecutorConfig `koanf:"executor"`
	Server   ServerConfig   `koanf:"server"`
}

// TargetConfig describes the backing database datasets are materialized
// into.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	Database string            `koanf:"database"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     t.Type,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Options:  t.Options,
	}
}

// LLMConfig describes the chat-completion backend used for NL-to-SQL
// translation. APIKey supports ${VAR} expansion so the secret can stay in
// the environment.
type LLMConfig struct {
	BaseURL        string  `koanf:"base_url"`
	Model          string  `koanf:"model"`
	APIKey         string  `koanf:"api_key"`
	TimeoutSeconds int     `koanf:"timeout_seconds"`
	MaxTokens      int     `koanf:"max_tokens"`
	Temperature    float64 `koanf:"temperature"`
}

// Timeout returns the request timeout as a duration.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// ExecutorConfig bounds query execution.
type ExecutorConfig struct {
	RowCap         int `koanf:"row_cap"`
	TimeoutSeconds int `koanf:"timeout_seconds"`
}

// Timeout returns the execution deadline as a duration.
func (e ExecutorConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Default configuration values.
const (
	DefaultTargetType  = "duckdb"
	DefaultDatabase    = ":memory:"
	DefaultAPIKeyVar   = "${GROQ_API_KEY}"
	DefaultLLMTimeout  = 30
	DefaultRowCap      = 500
	DefaultExecTimeout = 15
	DefaultServerHost  = "0.0.0.0"
	DefaultServerPort  = 8000
)
