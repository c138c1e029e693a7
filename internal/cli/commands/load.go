package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.csv>",
		Short: "Load a CSV file and show the inferred schema",
		Long: `Parse a CSV file, infer a typed schema, and materialize it into the
target database. Prints the dataset handle, the inferred column types, and
a sample of the data.

Note that dataset handles live only as long as the process; use 'ask
--file' to load and question data in one go, or 'serve' for a long-lived
service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			ds, err := a.store.Ingest(cmd.Context(), f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderSchema(out, ds)

			if len(ds.Schema.SampleRows) > 0 {
				_, _ = fmt.Fprintln(out, "\nSample rows:")
				for _, row := range ds.Schema.SampleRows {
					parts := make([]string, 0, len(ds.Schema.Columns))
					for _, col := range ds.Schema.Columns {
						parts = append(parts, fmt.Sprintf("%s=%v", col.Name, row[col.Name]))
					}
					_, _ = fmt.Fprintf(out, "  %s\n", strings.Join(parts, "  "))
				}
			}
			return nil
		},
	}
}
