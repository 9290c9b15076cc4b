// Package validate cross-references an extraction against a rule
// schema and produces a structured violation report.
//
// Invalid expressions are a normal, successful result: every rule
// category runs exhaustively with no early exit, and the report
// aggregates all findings. Only malformed inputs (nil extraction or
// schema) are hard errors.
package validate

import (
	"fmt"
	"strings"

	"github.com/openalpha/exprlint/internal/ir"
	"github.com/openalpha/exprlint/internal/schema"
)

// Validate runs every rule category over the extraction. Deterministic:
// same inputs, same report, always.
func Validate(ex *ir.Extraction, s *schema.Schema) (Report, error) {
	if ex == nil {
		return Report{}, fmt.Errorf("validate: nil extraction")
	}
	if s == nil {
		return Report{}, fmt.Errorf("validate: nil schema")
	}

	v := &validator{ex: ex, schema: s}
	v.checkOperators()
	v.checkDatafields()
	v.checkArity()
	v.checkKwargNames()
	v.checkKwargTypes()
	v.checkKwargRanges()
	v.checkKwargAllowed()
	v.checkVectorScope()

	return Report{Violations: v.violations}, nil
}

// validator accumulates violations during the passes. Each pass runs
// over the whole extraction, so the final list is ordered by category,
// then by appearance.
type validator struct {
	ex         *ir.Extraction
	schema     *schema.Schema
	violations []Violation
}

func (v *validator) add(violation Violation) {
	v.violations = append(v.violations, violation)
}

// checkOperators flags every distinct operator token without a schema
// entry. One violation per distinct unknown operator.
func (v *validator) checkOperators() {
	for _, op := range v.ex.Operators {
		if _, ok := v.schema.LookupOperator(op); ok {
			continue
		}
		v.add(Violation{
			Category:  CategoryUnknownOperator,
			Code:      CodeUnknownOperator,
			Subject:   op,
			CallIndex: -1,
			Line:      v.ex.OperatorPos[op].Line,
			Detail:    fmt.Sprintf("operator %q is not defined or allowed", op),
		})
	}
}

// checkDatafields flags every distinct free variable without a
// datafield declaration.
func (v *validator) checkDatafields() {
	for _, field := range v.ex.Datafields {
		if _, ok := v.schema.LookupDatafield(field); ok {
			continue
		}
		v.add(Violation{
			Category:  CategoryUnknownDatafield,
			Code:      CodeUnknownDatafield,
			Subject:   field,
			CallIndex: -1,
			Line:      v.ex.DatafieldPos[field].Line,
			Detail:    fmt.Sprintf("datafield %q is not declared", field),
		})
	}
}

// checkArity verifies positional-argument counts for every call site
// whose operator has a rule.
func (v *validator) checkArity() {
	for _, cs := range v.ex.CallSites {
		rule, ok := v.schema.LookupOperator(cs.Operator)
		if !ok {
			continue
		}
		n := len(cs.Args)
		if n < rule.MinArgs {
			v.add(Violation{
				Category:  CategoryArity,
				Code:      CodeArity,
				Subject:   cs.Operator,
				CallIndex: cs.Index,
				Line:      cs.Pos.Line,
				Detail:    fmt.Sprintf("%q expects at least %d positional argument(s), got %d", cs.Operator, rule.MinArgs, n),
			})
		}
		if rule.MaxArgs != schema.Unbounded && n > rule.MaxArgs {
			v.add(Violation{
				Category:  CategoryArity,
				Code:      CodeArity,
				Subject:   cs.Operator,
				CallIndex: cs.Index,
				Line:      cs.Pos.Line,
				Detail:    fmt.Sprintf("%q expects at most %d positional argument(s), got %d", cs.Operator, rule.MaxArgs, n),
			})
		}
	}
}

// checkKwargNames verifies that every keyword in a call is declared
// for the operator, and flags repeated keywords.
func (v *validator) checkKwargNames() {
	for _, cs := range v.ex.CallSites {
		rule, ok := v.schema.LookupOperator(cs.Operator)
		if !ok {
			continue
		}
		seen := make(map[string]bool, len(cs.Kwargs))
		for _, kw := range cs.Kwargs {
			if seen[kw.Name] {
				v.add(Violation{
					Category:  CategoryUnknownKwarg,
					Code:      CodeUnknownKwarg,
					Subject:   cs.Operator,
					Kwarg:     kw.Name,
					CallIndex: cs.Index,
					Line:      kw.Pos.Line,
					Detail:    fmt.Sprintf("duplicate keyword argument %q for %q", kw.Name, cs.Operator),
				})
				continue
			}
			seen[kw.Name] = true
			if _, declared := rule.Kwargs[kw.Name]; !declared {
				v.add(Violation{
					Category:  CategoryUnknownKwarg,
					Code:      CodeUnknownKwarg,
					Subject:   cs.Operator,
					Kwarg:     kw.Name,
					CallIndex: cs.Index,
					Line:      kw.Pos.Line,
					Detail:    fmt.Sprintf("invalid keyword argument %q for %q", kw.Name, cs.Operator),
				})
			}
		}
	}
}

// checkKwargTypes verifies that every declared keyword argument is a
// literal of the declared kind. A non-literal value cannot be
// statically verified and is itself a type violation. Integer
// literals widen to a declared "float"; no other coercion applies.
func (v *validator) checkKwargTypes() {
	v.eachDeclaredKwarg(func(cs *ir.CallSite, kw ir.Kwarg, rule schema.KwargRule) {
		lit, ok := kw.Value.(ir.Literal)
		if !ok {
			v.add(Violation{
				Category:  CategoryKwargType,
				Code:      CodeKwargType,
				Subject:   cs.Operator,
				Kwarg:     kw.Name,
				CallIndex: cs.Index,
				Line:      kw.Pos.Line,
				Detail:    fmt.Sprintf("keyword argument %q in %q must be a %s literal", kw.Name, cs.Operator, rule.Type),
			})
			return
		}
		if !kindMatches(rule.Type, lit.Value) {
			v.add(Violation{
				Category:  CategoryKwargType,
				Code:      CodeKwargType,
				Subject:   cs.Operator,
				Kwarg:     kw.Name,
				CallIndex: cs.Index,
				Line:      kw.Pos.Line,
				Detail:    fmt.Sprintf("keyword argument %q in %q expects a %s, got %s %s", kw.Name, cs.Operator, rule.Type, lit.Value.Kind(), ir.FormatLit(lit.Value)),
			})
		}
	})
}

// checkKwargRanges verifies declared inclusive numeric bounds against
// numeric literal values. Non-numeric values are the type check's
// concern and are skipped here.
func (v *validator) checkKwargRanges() {
	v.eachDeclaredKwarg(func(cs *ir.CallSite, kw ir.Kwarg, rule schema.KwargRule) {
		if rule.MinVal == nil && rule.MaxVal == nil {
			return
		}
		lit, ok := kw.Value.(ir.Literal)
		if !ok {
			return
		}
		if _, isBool := lit.Value.(ir.LitBool); isBool {
			return
		}
		val, numeric := ir.Float(lit.Value)
		if !numeric {
			return
		}
		if rule.MinVal != nil && val < *rule.MinVal {
			v.add(Violation{
				Category:  CategoryKwargRange,
				Code:      CodeKwargRange,
				Subject:   cs.Operator,
				Kwarg:     kw.Name,
				CallIndex: cs.Index,
				Line:      kw.Pos.Line,
				Detail:    fmt.Sprintf("value for %q in %q must be >= %v, got %s", kw.Name, cs.Operator, *rule.MinVal, ir.FormatLit(lit.Value)),
			})
		}
		if rule.MaxVal != nil && val > *rule.MaxVal {
			v.add(Violation{
				Category:  CategoryKwargRange,
				Code:      CodeKwargRange,
				Subject:   cs.Operator,
				Kwarg:     kw.Name,
				CallIndex: cs.Index,
				Line:      kw.Pos.Line,
				Detail:    fmt.Sprintf("value for %q in %q must be <= %v, got %s", kw.Name, cs.Operator, *rule.MaxVal, ir.FormatLit(lit.Value)),
			})
		}
	})
}

// checkKwargAllowed verifies membership in a declared finite value
// set. Runs in addition to the range check when both are declared.
func (v *validator) checkKwargAllowed() {
	v.eachDeclaredKwarg(func(cs *ir.CallSite, kw ir.Kwarg, rule schema.KwargRule) {
		if len(rule.Allowed) == 0 {
			return
		}
		lit, ok := kw.Value.(ir.Literal)
		if !ok {
			return
		}
		if litInAllowed(lit.Value, rule.Allowed) {
			return
		}
		v.add(Violation{
			Category:  CategoryKwargAllowed,
			Code:      CodeKwargAllowed,
			Subject:   cs.Operator,
			Kwarg:     kw.Name,
			CallIndex: cs.Index,
			Line:      kw.Pos.Line,
			Detail:    fmt.Sprintf("value %s for %q in %q is not one of the allowed values", ir.FormatLit(lit.Value), kw.Name, cs.Operator),
		})
	})
}

// checkVectorScope enforces that VECTOR datafields appear only inside
// calls whose operator carries the vector-aware prefix. The innermost
// enclosing call decides; a bare use outside any call is a violation.
func (v *validator) checkVectorScope() {
	prefix := v.schema.VectorPrefix()
	for _, use := range v.ex.Uses {
		decl, ok := v.schema.LookupDatafield(use.Name)
		if !ok || decl.Kind != schema.KindVector {
			continue
		}
		if use.CallIndex < 0 {
			v.add(Violation{
				Category:  CategoryVectorScope,
				Code:      CodeVectorScope,
				Subject:   use.Name,
				CallIndex: -1,
				Line:      use.Pos.Line,
				Detail:    fmt.Sprintf("VECTOR datafield %q must be used inside a %q operator", use.Name, prefix+"*"),
			})
			continue
		}
		cs := v.ex.CallSites[use.CallIndex]
		if !strings.HasPrefix(cs.Operator, prefix) {
			v.add(Violation{
				Category:  CategoryVectorScope,
				Code:      CodeVectorScope,
				Subject:   use.Name,
				CallIndex: cs.Index,
				Line:      use.Pos.Line,
				Detail:    fmt.Sprintf("VECTOR datafield %q cannot be passed to %q, only %q operators accept it", use.Name, cs.Operator, prefix+"*"),
			})
		}
	}
}

// eachDeclaredKwarg visits every keyword occurrence whose operator has
// a rule declaring that keyword. Duplicated occurrences are visited
// independently.
func (v *validator) eachDeclaredKwarg(fn func(cs *ir.CallSite, kw ir.Kwarg, rule schema.KwargRule)) {
	for _, cs := range v.ex.CallSites {
		rule, ok := v.schema.LookupOperator(cs.Operator)
		if !ok {
			continue
		}
		for _, kw := range cs.Kwargs {
			kwRule, declared := rule.Kwargs[kw.Name]
			if !declared {
				continue
			}
			fn(cs, kw, kwRule)
		}
	}
}

// kindMatches checks a literal kind against a declared type. Bool
// never satisfies a numeric type and numerics never satisfy bool.
func kindMatches(declared schema.ValueType, lit ir.LitValue) bool {
	switch declared {
	case schema.TypeBool:
		return lit.Kind() == ir.KindBool
	case schema.TypeInt:
		return lit.Kind() == ir.KindInt
	case schema.TypeFloat:
		// Int literals widen to float; the reverse never holds.
		return lit.Kind() == ir.KindFloat || lit.Kind() == ir.KindInt
	case schema.TypeString:
		return lit.Kind() == ir.KindString
	default:
		return false
	}
}

// litInAllowed tests set membership. Allowed values come from decoded
// JSON/YAML, so numbers may arrive as int, int64, or float64; numeric
// literals compare numerically, bools and strings exactly.
func litInAllowed(lit ir.LitValue, allowed []any) bool {
	for _, a := range allowed {
		switch av := a.(type) {
		case bool:
			if b, ok := lit.(ir.LitBool); ok && bool(b) == av {
				return true
			}
		case string:
			if s, ok := lit.(ir.LitString); ok && string(s) == av {
				return true
			}
		case int:
			if numericEqual(lit, float64(av)) {
				return true
			}
		case int64:
			if numericEqual(lit, float64(av)) {
				return true
			}
		case float64:
			if numericEqual(lit, av) {
				return true
			}
		}
	}
	return false
}

func numericEqual(lit ir.LitValue, want float64) bool {
	if _, isBool := lit.(ir.LitBool); isBool {
		return false
	}
	val, ok := ir.Float(lit)
	return ok && val == want
}
