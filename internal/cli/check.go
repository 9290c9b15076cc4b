package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openalpha/exprlint/internal/extract"
	"github.com/openalpha/exprlint/internal/ir"
	"github.com/openalpha/exprlint/internal/schema"
	"github.com/openalpha/exprlint/internal/store"
	"github.com/openalpha/exprlint/internal/validate"
)

// CheckResult is the JSON payload of the check command.
type CheckResult struct {
	Valid             bool                 `json:"valid"`
	Operators         []string             `json:"operators"`
	Datafields        []string             `json:"datafields"`
	Violations        []validate.Violation `json:"violations,omitempty"`
	ExprFingerprint   string               `json:"expr_fingerprint"`
	ReportFingerprint string               `json:"report_fingerprint"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var rulesPath string
	var auditPath string

	cmd := &cobra.Command{
		Use:   "check <expression>",
		Short: "Validate an expression against a rule schema",
		Long: `Extract an expression's operators, datafields, and call sites, then
validate them against the operator and datafield tables in the given
rule file. All rule categories run exhaustively; a populated report is
a successful analysis, not an error.

Exit codes: 0 clean, 1 violations found, 2 could not analyze.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], rulesPath, auditPath, cmd)
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "path to the rule file (.json or .yaml) or a directory of rule files")
	cmd.Flags().StringVar(&auditPath, "audit", "", "optional SQLite database recording this run")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}

func runCheck(opts *RootOptions, expression, rulesPath, auditPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := schema.Load(rulesPath)
	if err != nil {
		return outputCheckLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded rules from %s", rulesPath)

	ex, err := extract.Extract(expression)
	if err != nil {
		return outputExtractError(formatter, err)
	}
	formatter.VerboseLog("Extracted %d operator(s), %d datafield(s), %d call(s)",
		len(ex.Operators), len(ex.Datafields), len(ex.CallSites))

	report, err := validate.Validate(ex, s)
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "validation failed", err)
	}

	reportFP, err := report.Fingerprint()
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "fingerprinting report", err)
	}

	result := CheckResult{
		Valid:             report.Valid(),
		Operators:         ex.Operators,
		Datafields:        ex.Datafields,
		Violations:        report.Violations,
		ExprFingerprint:   ir.ExpressionFingerprint(expression),
		ReportFingerprint: reportFP,
	}

	if auditPath != "" {
		if err := auditRun(cmd, auditPath, expression, result, report); err != nil {
			_ = formatter.Error("E002", err.Error(), nil)
			return WrapExitError(ExitCommandError, "recording audit run", err)
		}
		formatter.VerboseLog("Recorded run in %s", auditPath)
	}

	return outputCheckResult(formatter, result)
}

// auditRun records the checked expression and its report in the audit
// store.
func auditRun(cmd *cobra.Command, auditPath, expression string, result CheckResult, report validate.Report) error {
	st, err := store.Open(auditPath)
	if err != nil {
		return err
	}
	defer st.Close()

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	return st.RecordRun(cmd.Context(), store.Run{
		ID:                store.NewRunID(),
		ExprFingerprint:   result.ExprFingerprint,
		ReportFingerprint: result.ReportFingerprint,
		Expression:        expression,
		ViolationCount:    len(report.Violations),
		ReportJSON:        string(reportJSON),
	})
}

func outputCheckResult(formatter *OutputFormatter, result CheckResult) error {
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
		if !result.Valid {
			return NewExitError(ExitViolations, fmt.Sprintf("%d violation(s)", len(result.Violations)))
		}
		return nil
	}

	if result.Valid {
		fmt.Fprintln(formatter.Writer, "✓ expression is valid")
		return nil
	}

	fmt.Fprintf(formatter.Writer, "✗ %d violation(s)\n\n", len(result.Violations))
	for _, violation := range result.Violations {
		fmt.Fprintf(formatter.Writer, "  %s\n", violation)
	}
	return NewExitError(ExitViolations, fmt.Sprintf("%d violation(s)", len(result.Violations)))
}

// outputCheckLoadError renders a rule-file load failure.
func outputCheckLoadError(formatter *OutputFormatter, err error) error {
	code := "L000"
	var le *schema.LoadError
	var se *schema.Error
	switch {
	case errors.As(err, &le):
		code = le.Code
	case errors.As(err, &se):
		code = se.Code
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "could not load rules", err)
}
