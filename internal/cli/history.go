package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openalpha/exprlint/internal/store"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List audited validation runs",
		Long: `List validation runs recorded by "check --audit", newest first.
Identical expression and report fingerprints across runs confirm that
validation is deterministic for unchanged inputs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, dbPath, limit, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the audit database")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *RootOptions, dbPath string, limit int, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	// Opening would create an empty database; a missing path is a
	// command error instead.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		_ = formatter.Error("E003", fmt.Sprintf("audit database not found: %s", dbPath), nil)
		return NewExitError(ExitCommandError, "audit database not found")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error("E003", err.Error(), nil)
		return WrapExitError(ExitCommandError, "could not open audit database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), limit)
	if err != nil {
		_ = formatter.Error("E003", err.Error(), nil)
		return WrapExitError(ExitCommandError, "could not list runs", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "no audited runs")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s  violations=%d  %s\n",
			run.ID,
			run.CreatedAt.UTC().Format(time.RFC3339),
			run.ViolationCount,
			run.Expression,
		)
	}
	return nil
}
