package validate

import (
	"fmt"

	"github.com/openalpha/exprlint/internal/ir"
)

// Category identifies one of the validation rule categories. The
// declaration order here is the report order: violations are sorted by
// category first, then by first appearance in the expression.
type Category string

const (
	CategoryUnknownOperator  Category = "unknown_operator"
	CategoryUnknownDatafield Category = "unknown_datafield"
	CategoryArity            Category = "arity"
	CategoryUnknownKwarg     Category = "unknown_kwarg"
	CategoryKwargType        Category = "kwarg_type"
	CategoryKwargRange       Category = "kwarg_range"
	CategoryKwargAllowed     Category = "kwarg_allowed"
	CategoryVectorScope      Category = "vector_scope"
)

// Violation codes (V1xx), one per category.
const (
	CodeUnknownOperator  = "V101"
	CodeUnknownDatafield = "V102"
	CodeArity            = "V103"
	CodeUnknownKwarg     = "V104"
	CodeKwargType        = "V105"
	CodeKwargRange       = "V106"
	CodeKwargAllowed     = "V107"
	CodeVectorScope      = "V108"
)

// Violation is a single, independently reported failure of one
// validation rule. Violations never abort the pass; the validator
// visits every check and every call site before returning.
type Violation struct {
	Category Category `json:"category"`
	Code     string   `json:"code"`

	// Subject is the operator name or datafield id the violation is
	// about.
	Subject string `json:"subject"`

	// Kwarg is the keyword-argument name for kwarg categories.
	Kwarg string `json:"kwarg,omitempty"`

	// CallIndex is the index of the offending call site, or -1 when
	// the violation is not tied to a call.
	CallIndex int `json:"call_index"`

	// Line is the 1-based source line of first relevance.
	Line int32 `json:"line,omitempty"`

	Detail string `json:"detail"`
}

// String renders a human-readable one-line message.
func (v Violation) String() string {
	if v.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", v.Code, v.Line, v.Category, v.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.Category, v.Detail)
}

// Report is the ordered list of violations for one expression. A
// report with zero entries means the expression is fully valid. It is
// a pure value, produced fresh per Validate call.
type Report struct {
	Violations []Violation `json:"violations"`
}

// Valid reports whether the expression passed every check.
func (r Report) Valid() bool {
	return len(r.Violations) == 0
}

// Fingerprint computes a stable content fingerprint of the report.
// Identical inputs to Validate yield identical fingerprints.
func (r Report) Fingerprint() (string, error) {
	violations := make([]any, len(r.Violations))
	for i, v := range r.Violations {
		violations[i] = map[string]any{
			"category":   string(v.Category),
			"code":       v.Code,
			"subject":    v.Subject,
			"kwarg":      v.Kwarg,
			"call_index": v.CallIndex,
			"line":       v.Line,
			"detail":     v.Detail,
		}
	}
	return ir.Fingerprint(ir.DomainReport, map[string]any{"violations": violations})
}
