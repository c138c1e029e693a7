package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// AskOptions holds flags for the ask command.
type AskOptions struct {
	File   string
	Format string
}

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	opts := &AskOptions{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a natural-language question about a CSV file",
		Long: `Load a CSV file and answer questions about it in plain language.

With a question argument, answers it and exits. Without one, starts an
interactive session where each line is a new question against the loaded
dataset.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.File == "" {
				return fmt.Errorf("--file is required: a question needs data to run against")
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			f, err := os.Open(opts.File)
			if err != nil {
				return fmt.Errorf("opening %s: %w", opts.File, err)
			}
			ds, err := a.store.Ingest(cmd.Context(), f)
			_ = f.Close()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				return askOnce(cmd.Context(), cmd.OutOrStdout(), a, args[0], ds.Handle, opts.Format)
			}
			return askREPL(cmd, a, ds.Handle, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "CSV file to load (required)")
	cmd.Flags().StringVarP(&opts.Format, "format", "F", "text", "Output format (text|json)")

	return cmd
}

func askOnce(ctx context.Context, w io.Writer, a *app, question, handle, format string) error {
	result, err := a.orchestrator.Analyze(ctx, question, handle)
	if err != nil {
		return err
	}

	if format == "json" {
		return renderResultJSON(w, result)
	}
	renderResult(w, result)
	return nil
}

func askREPL(cmd *cobra.Command, a *app, handle string, opts *AskOptions) error {
	historyFile := filepath.Join(os.TempDir(), "insightai_ask_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "insightai> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "InsightAI interactive session (dataset: %s)\n", opts.File)
	_, _ = fmt.Fprintln(out, "Ask questions in plain language, .quit to exit")
	_, _ = fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".quit" || line == ".exit" {
			break
		}

		if err := askOnce(cmd.Context(), out, a, line, handle, opts.Format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(out)
	}

	return nil
}
