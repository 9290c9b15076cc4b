package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/exprlint/internal/ir"
)

func TestExtractSimpleExpression(t *testing.T) {
	ex, err := Extract("a = ts_mean(close, 20); b = ts_corr(open, close, 20); sigmoid(a * b)")
	require.NoError(t, err)

	assert.Equal(t, []string{"ts_mean", "ts_corr", "sigmoid", "*"}, ex.Operators)
	assert.Equal(t, []string{"close", "open"}, ex.Datafields)
	assert.Len(t, ex.CallSites, 3)
}

func TestExtractNoAssignments(t *testing.T) {
	// Every bare name not used as a keyword is a datafield.
	ex, err := Extract("x + y > z")
	require.NoError(t, err)

	assert.Equal(t, []string{"+", ">"}, ex.Operators)
	assert.Equal(t, []string{"x", "y", "z"}, ex.Datafields)
}

func TestExtractOperatorOrderFollowsSource(t *testing.T) {
	// First appearance means textual order, not tree order: an infix
	// operator appears after its left operand, so "+" precedes ">"
	// even though ">" is the root of the tree.
	ex, err := Extract("a * b + c > d")
	require.NoError(t, err)

	assert.Equal(t, []string{"*", "+", ">"}, ex.Operators)

	// The emitted order must agree with the recorded positions.
	for i := 1; i < len(ex.Operators); i++ {
		prev := ex.OperatorPos[ex.Operators[i-1]]
		cur := ex.OperatorPos[ex.Operators[i]]
		assert.True(t, prev.Col < cur.Col,
			"%q (col %d) listed before %q (col %d)",
			ex.Operators[i-1], prev.Col, ex.Operators[i], cur.Col)
	}
}

func TestExtractAssignmentChain(t *testing.T) {
	ex, err := Extract("a = b; c = a + d")
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "d"}, ex.Datafields)
	assert.NotContains(t, ex.Datafields, "a")
	assert.NotContains(t, ex.Datafields, "c")
	assert.Equal(t, []string{"+"}, ex.Operators)
}

func TestExtractDuplicateCollapse(t *testing.T) {
	// Order-preserving, duplicate-collapsing.
	ex, err := Extract("x+x+y")
	require.NoError(t, err)

	assert.Equal(t, []string{"+"}, ex.Operators)
	assert.Equal(t, []string{"x", "y"}, ex.Datafields)
}

func TestExtractSelfReference(t *testing.T) {
	// A self-reference to a not-yet-bound name is a datafield.
	ex, err := Extract("a = a + 1")
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, ex.Datafields)
}

func TestExtractBindingVisibleToLaterStatements(t *testing.T) {
	ex, err := Extract("a = close; a + a")
	require.NoError(t, err)

	assert.Equal(t, []string{"close"}, ex.Datafields)
}

func TestExtractNestedCallsIndependentSites(t *testing.T) {
	ex, err := Extract("f(g(x))")
	require.NoError(t, err)

	require.Len(t, ex.CallSites, 2)
	assert.Equal(t, "f", ex.CallSites[0].Operator)
	assert.Equal(t, "g", ex.CallSites[1].Operator)
	assert.Equal(t, []string{"f", "g"}, ex.Operators)

	// x is enclosed by the innermost call.
	require.Len(t, ex.Uses, 1)
	assert.Equal(t, "x", ex.Uses[0].Name)
	assert.Equal(t, 1, ex.Uses[0].CallIndex)
}

func TestExtractBareUseOutsideCalls(t *testing.T) {
	ex, err := Extract("tgr_price + 1")
	require.NoError(t, err)

	require.Len(t, ex.Uses, 1)
	assert.Equal(t, "tgr_price", ex.Uses[0].Name)
	assert.Equal(t, -1, ex.Uses[0].CallIndex)
}

func TestExtractKwargs(t *testing.T) {
	ex, err := Extract("hump(x, hump=0.5)")
	require.NoError(t, err)

	require.Len(t, ex.CallSites, 1)
	site := ex.CallSites[0]
	assert.Len(t, site.Args, 1)
	require.Len(t, site.Kwargs, 1)
	assert.Equal(t, "hump", site.Kwargs[0].Name)

	lit := site.Kwargs[0].Value.(ir.Literal)
	assert.Equal(t, ir.LitFloat(0.5), lit.Value)

	// The keyword name is not a datafield; the argument x is.
	assert.Equal(t, []string{"x"}, ex.Datafields)
}

func TestExtractKwargRepeats(t *testing.T) {
	// Repeats are preserved for the validator to flag; the map keeps
	// the last occurrence.
	ex, err := Extract("hump(x, hump=0.5, hump=0.7)")
	require.NoError(t, err)

	site := ex.CallSites[0]
	require.Len(t, site.Kwargs, 2)
	last := site.KwargMap()["hump"].(ir.Literal)
	assert.Equal(t, ir.LitFloat(0.7), last.Value)
}

func TestExtractBoolLiteral(t *testing.T) {
	ex, err := Extract("normalize(x, useStd=True)")
	require.NoError(t, err)

	lit := ex.CallSites[0].Kwargs[0].Value.(ir.Literal)
	assert.Equal(t, ir.LitBool(true), lit.Value)
	assert.NotContains(t, ex.Datafields, "True")
}

func TestExtractStringLiteral(t *testing.T) {
	ex, err := Extract("quantile(x, driver='gaussian')")
	require.NoError(t, err)

	lit := ex.CallSites[0].Kwargs[0].Value.(ir.Literal)
	assert.Equal(t, ir.LitString("gaussian"), lit.Value)
}

func TestExtractNegativeLiteralFolded(t *testing.T) {
	// A sign applied to a numeric literal folds into the literal, so
	// it stays checkable as a keyword-argument value.
	ex, err := Extract("hump(x, hump=-0.5)")
	require.NoError(t, err)

	lit := ex.CallSites[0].Kwargs[0].Value.(ir.Literal)
	assert.Equal(t, ir.LitFloat(-0.5), lit.Value)
	assert.Equal(t, []string{"hump"}, ex.Operators, "the folded sign is not an operator")
}

func TestExtractUnaryNotRecorded(t *testing.T) {
	ex, err := Extract("not x")
	require.NoError(t, err)

	assert.Equal(t, []string{"not"}, ex.Operators)
	assert.Equal(t, []string{"x"}, ex.Datafields)
}

func TestExtractAugmentedAssignment(t *testing.T) {
	ex, err := Extract("a = close; a += open")
	require.NoError(t, err)

	assert.Equal(t, []string{"+="}, ex.Operators)
	assert.Equal(t, []string{"close", "open"}, ex.Datafields)
}

func TestExtractAugmentedAssignmentUnboundTarget(t *testing.T) {
	// Reading the target before it is bound makes it a datafield,
	// same as a right-hand self-reference.
	ex, err := Extract("z += 1")
	require.NoError(t, err)

	assert.Equal(t, []string{"z"}, ex.Datafields)
}

func TestExtractComparisonOperators(t *testing.T) {
	ex, err := Extract("close > open; close <= open; close != open")
	require.NoError(t, err)

	assert.Equal(t, []string{">", "<=", "!="}, ex.Operators)
	assert.Equal(t, []string{"close", "open"}, ex.Datafields)
}

func TestExtractBooleanOperators(t *testing.T) {
	ex, err := Extract("a > 1 and b < 2 or c == 3")
	require.NoError(t, err)

	assert.Contains(t, ex.Operators, "and")
	assert.Contains(t, ex.Operators, "or")
}

func TestExtractOperatorFirstAppearancePositions(t *testing.T) {
	ex, err := Extract("x + y;\nx - y")
	require.NoError(t, err)

	assert.Equal(t, int32(1), ex.OperatorPos["+"].Line)
	assert.Equal(t, int32(2), ex.OperatorPos["-"].Line)
}

func TestExtractSyntaxError(t *testing.T) {
	_, err := Extract("ts_mean(close,")
	require.Error(t, err)
	assert.True(t, IsSyntaxError(err))
	assert.False(t, IsUnsupportedError(err))
}

func TestExtractEmptyInput(t *testing.T) {
	ex, err := Extract("")
	require.NoError(t, err)
	assert.Empty(t, ex.Operators)
	assert.Empty(t, ex.Datafields)
	assert.Empty(t, ex.CallSites)
}

func TestExtractUnsupportedConstructs(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"subscript", "x[0]"},
		{"attribute access", "x.mean"},
		{"list literal", "[1, 2, 3]"},
		{"dict literal", "{'a': 1}"},
		{"conditional expression", "1 if x else 2"},
		{"call on expression", "(f)(x)[0]"},
		{"tuple assignment target", "a, b = x, y"},
		{"subscript assignment target", "x[0] = 1"},
		{"argument forwarding", "f(*x)"},
		{"none literal", "f(None)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.expr)
			require.Error(t, err)
			assert.True(t, IsUnsupportedError(err), "expected unsupported-construct error, got %v", err)
		})
	}
}

func TestExtractErrorCarriesPosition(t *testing.T) {
	_, err := Extract("x + y;\nx[0]")
	require.Error(t, err)

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, CodeUnsupported, ee.Code)
	assert.Equal(t, int32(2), ee.Pos.Line)
}

func TestExtractPartialResultDiscarded(t *testing.T) {
	ex, err := Extract("valid = close + open; bad[0]")
	require.Error(t, err)
	assert.Nil(t, ex, "caller must not validate a partial result")
}
