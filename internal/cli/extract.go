package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openalpha/exprlint/internal/extract"
)

// ExtractionSummary is the JSON payload of the extract command.
type ExtractionSummary struct {
	Operators  []string `json:"operators"`
	Datafields []string `json:"datafields"`
	CallCount  int      `json:"call_count"`
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <expression>",
		Short: "Extract operators and datafields from an expression",
		Long: `Parse an expression string and list the operators (function names,
arithmetic and comparison symbols) and datafields (free variables) it
uses, without validating them against any rule schema.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runExtract(opts *RootOptions, expression string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ex, err := extract.Extract(expression)
	if err != nil {
		return outputExtractError(formatter, err)
	}

	summary := ExtractionSummary{
		Operators:  ex.Operators,
		Datafields: ex.Datafields,
		CallCount:  len(ex.CallSites),
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "operators:  %s\n", strings.Join(summary.Operators, ", "))
	fmt.Fprintf(formatter.Writer, "datafields: %s\n", strings.Join(summary.Datafields, ", "))
	fmt.Fprintf(formatter.Writer, "calls:      %d\n", summary.CallCount)
	return nil
}

// outputExtractError renders a fatal extraction error. Unparsable
// input is a command error (exit 2): the expression was never
// analyzed, so there is no report to speak of.
func outputExtractError(formatter *OutputFormatter, err error) error {
	code := "X000"
	var ee *extract.Error
	if errors.As(err, &ee) {
		code = string(ee.Code)
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "could not analyze expression", err)
}
