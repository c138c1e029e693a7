package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/insight-labs/insightai/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP analysis server",
		Long: `Start the HTTP server exposing upload, analyze, and health endpoints.

The server keeps datasets in the configured target database for its
lifetime; uploads are ephemeral and superseded by newer ones.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if !a.client.Configured() {
				a.logger.Warn("no LLM API key configured; analyze requests will fail",
					"hint", "set GROQ_API_KEY or llm.api_key in insightai.yaml")
			}

			srv := server.NewServer(server.Config{
				Store:        a.store,
				Orchestrator: a.orchestrator,
				LLMReady:     a.client.Configured,
				Host:         a.cfg.Server.Host,
				Port:         a.cfg.Server.Port,
				Logger:       a.logger,
			})
			return srv.Serve(ctx)
		},
	}
}
