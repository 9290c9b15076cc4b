package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/exprlint/internal/store"
)

const testRules = "testdata/rules.json"

// executeCommand runs the CLI with the given args and captures stdout
// and stderr separately.
func executeCommand(args ...string) (stdout, stderr string, err error) {
	cmd := NewRootCommand()

	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestRootInvalidFormat(t *testing.T) {
	_, _, err := executeCommand("extract", "close + open", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestExtractText(t *testing.T) {
	stdout, _, err := executeCommand("extract", "a = ts_mean(close, 20); sigmoid(a)")
	require.NoError(t, err)

	assert.Equal(t, "operators:  ts_mean, sigmoid\ndatafields: close\ncalls:      2\n", stdout)
}

func TestExtractJSON(t *testing.T) {
	stdout, _, err := executeCommand("extract", "close + open", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   ExtractionSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"+"}, resp.Data.Operators)
	assert.Equal(t, []string{"close", "open"}, resp.Data.Datafields)
	assert.Equal(t, 0, resp.Data.CallCount)
}

func TestExtractSyntaxErrorIsCommandError(t *testing.T) {
	stdout, _, err := executeCommand("extract", "ts_mean(close,")
	require.Error(t, err)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [X001]")
}

func TestExtractUnsupportedConstructIsCommandError(t *testing.T) {
	stdout, _, err := executeCommand("extract", "close[0]")
	require.Error(t, err)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [X002]")
}

func TestCheckValid(t *testing.T) {
	stdout, _, err := executeCommand("check", "price_diff = close - open; price_diff > 0", "--rules", testRules)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "check_valid", []byte(stdout))
}

func TestCheckArityViolation(t *testing.T) {
	stdout, _, err := executeCommand("check", "ts_mean(close)", "--rules", testRules)
	require.Error(t, err)
	assert.Equal(t, ExitViolations, GetExitCode(err))

	g := goldie.New(t)
	g.Assert(t, "check_arity", []byte(stdout))
}

func TestCheckJSON(t *testing.T) {
	stdout, _, err := executeCommand("check", "hump(close, hump=1.5)", "--rules", testRules, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitViolations, GetExitCode(err))

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))

	assert.Equal(t, "ok", resp.Status, "violations are a successful analysis")
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Violations, 1)
	assert.Equal(t, "V106", resp.Data.Violations[0].Code)
	assert.Len(t, resp.Data.ExprFingerprint, 64)
	assert.Len(t, resp.Data.ReportFingerprint, 64)
}

func TestCheckVectorScope(t *testing.T) {
	// The vector field passes through vec_avg fine but not ts_mean.
	_, _, err := executeCommand("check", "vec_avg(tgr_price)", "--rules", testRules)
	assert.NoError(t, err)

	stdout, _, err := executeCommand("check", "ts_mean(tgr_price, 20)", "--rules", testRules)
	require.Error(t, err)
	assert.Equal(t, ExitViolations, GetExitCode(err))
	assert.Contains(t, stdout, "[V108]")
}

func TestCheckMissingRulesFile(t *testing.T) {
	stdout, _, err := executeCommand("check", "close + open", "--rules", "testdata/nope.json")
	require.Error(t, err)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [L001]")
}

func TestCheckRulesFlagRequired(t *testing.T) {
	_, _, err := executeCommand("check", "close + open")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules")
}

func TestCheckAuditRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	expr := "hump(close, hump=1.5)"

	for i := 0; i < 2; i++ {
		_, _, err := executeCommand("check", expr, "--rules", testRules, "--audit", dbPath)
		require.Error(t, err)
		assert.Equal(t, ExitViolations, GetExitCode(err))
	}

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Same expression, same rules: both fingerprints must agree across
	// runs.
	assert.Equal(t, runs[0].ExprFingerprint, runs[1].ExprFingerprint)
	assert.Equal(t, runs[0].ReportFingerprint, runs[1].ReportFingerprint)
	assert.NotEqual(t, runs[0].ID, runs[1].ID)
	assert.Equal(t, 1, runs[0].ViolationCount)
	assert.Equal(t, expr, runs[0].Expression)
	assert.Contains(t, runs[0].ReportJSON, "V106")
}

func TestHistoryListsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	_, _, err := executeCommand("check", "close + open", "--rules", testRules, "--audit", dbPath)
	require.NoError(t, err)

	stdout, _, err := executeCommand("history", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "violations=0")
	assert.Contains(t, stdout, "close + open")
}

func TestHistoryJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	_, _, err := executeCommand("check", "ts_mean(close)", "--rules", testRules, "--audit", dbPath)
	require.Error(t, err)

	stdout, _, err := executeCommand("history", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.Data[0].ViolationCount)
}

func TestHistoryMissingDatabase(t *testing.T) {
	stdout, _, err := executeCommand("history", "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "audit database not found")
}

func TestVerboseLogsGoToStderr(t *testing.T) {
	stdout, stderr, err := executeCommand("check", "close + open", "--rules", testRules, "--verbose", "--format", "json")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Loaded rules")
	require.NoError(t, json.Unmarshal([]byte(stdout), &json.RawMessage{}), "stdout must stay parseable JSON")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, ExitViolations, GetExitCode(assert.AnError))
}
