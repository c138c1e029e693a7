// Package commands implements the insightai subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/insight-labs/insightai/internal/adapter"
	"github.com/insight-labs/insightai/internal/config"
	"github.com/insight-labs/insightai/internal/dataset"
	"github.com/insight-labs/insightai/internal/executor"
	"github.com/insight-labs/insightai/internal/nlsql"
	"github.com/insight-labs/insightai/internal/pipeline"
)

// app wires the pipeline components for a single command invocation.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	db           adapter.Adapter
	store        *dataset.Store
	client       *nlsql.ChatClient
	orchestrator *pipeline.Orchestrator
}

// newApp builds the component graph from the loaded config and connects
// the backing database.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.GetConfig(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	logger := config.GetLogger(ctx)

	adapterCfg := cfg.Target.AdapterConfig()
	db, err := adapter.New(adapterCfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx, adapterCfg); err != nil {
		return nil, fmt.Errorf("connecting to %s target: %w", cfg.Target.Type, err)
	}

	client := nlsql.NewChatClient(nlsql.Config{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Timeout:     cfg.LLM.Timeout(),
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, logger)

	store := dataset.NewStore(db, logger)
	exec := executor.New(db, executor.Options{
		RowCap:  cfg.Executor.RowCap,
		Timeout: cfg.Executor.Timeout(),
	}, logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		store:        store,
		client:       client,
		orchestrator: pipeline.New(store, client, exec, logger),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
