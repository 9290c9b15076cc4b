// Package schema holds the rule tables an expression is validated
// against: the operator table (arity and keyword-argument constraints
// per operator) and the datafield table (declared external data
// sources and their kinds).
//
// A Schema is immutable after New returns and safe to share across
// concurrent validations. Malformed tables fail fast at construction,
// never at validation time.
package schema

import (
	"fmt"
	"strings"
)

// Kind classifies a datafield and controls which operators may
// consume it.
type Kind string

const (
	KindMatrix Kind = "MATRIX"
	KindVector Kind = "VECTOR"
	KindGroup  Kind = "GROUP"
)

// ValueType is the declared type of a keyword-argument value.
type ValueType string

const (
	TypeBool   ValueType = "bool"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeString ValueType = "str"
)

// DefaultVectorPrefix marks vector-aware operators when the rule file
// does not designate its own prefix.
const DefaultVectorPrefix = "vec_"

// Unbounded is the MaxArgs value meaning "no upper bound".
const Unbounded = -1

// KwargRule constrains one keyword argument of an operator. When both
// Allowed and MinVal/MaxVal are present, both must hold.
type KwargRule struct {
	Type ValueType `json:"type"`

	// Allowed is an optional finite set of permitted literal values.
	// Values decoded from JSON/YAML arrive as bool, string, int64, or
	// float64.
	Allowed []any `json:"allowed,omitempty"`

	// MinVal/MaxVal are optional inclusive numeric bounds.
	MinVal *float64 `json:"min_val,omitempty"`
	MaxVal *float64 `json:"max_val,omitempty"`
}

// OperatorRule constrains one operator: inclusive positional-argument
// bounds (MaxArgs == Unbounded means no upper bound) and the declared
// keyword arguments.
type OperatorRule struct {
	MinArgs int                  `json:"min_args"`
	MaxArgs int                  `json:"max_args"`
	Kwargs  map[string]KwargRule `json:"kwargs,omitempty"`
}

// DatafieldDecl declares one external data source. IDs are
// case-sensitive and unique within a schema.
type DatafieldDecl struct {
	ID   string `json:"id"`
	Kind Kind   `json:"type"`
}

// Error codes for schema construction failures (S0xx).
const (
	ErrCodeEmptyOperator  = "S001" // empty operator name
	ErrCodeBadArity       = "S002" // negative min_args or max_args < min_args
	ErrCodeBadKwargType   = "S003" // unknown kwarg type string
	ErrCodeBadRange       = "S004" // min_val > max_val
	ErrCodeEmptyDatafield = "S005" // empty datafield id
	ErrCodeBadKind        = "S006" // unknown datafield kind
	ErrCodeDuplicateField = "S007" // duplicate datafield id
)

// Error represents a malformed rule table, reported at load time.
type Error struct {
	Code    string
	Subject string // operator name, kwarg path, or datafield id
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Subject, e.Message)
}

// Schema is the immutable pair of rule tables plus the designated
// vector-aware operator prefix.
type Schema struct {
	operators    map[string]OperatorRule
	datafields   map[string]DatafieldDecl
	vectorPrefix string
}

// Option configures schema construction.
type Option func(*Schema)

// WithVectorPrefix overrides the prefix marking vector-aware
// operators.
func WithVectorPrefix(prefix string) Option {
	return func(s *Schema) {
		if prefix != "" {
			s.vectorPrefix = prefix
		}
	}
}

// New builds a Schema from the two rule tables, validating internal
// consistency. It fails on the first malformed entry.
func New(operators map[string]OperatorRule, datafields []DatafieldDecl, opts ...Option) (*Schema, error) {
	s := &Schema{
		operators:    make(map[string]OperatorRule, len(operators)),
		datafields:   make(map[string]DatafieldDecl, len(datafields)),
		vectorPrefix: DefaultVectorPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}

	for name, rule := range operators {
		if strings.TrimSpace(name) == "" {
			return nil, &Error{Code: ErrCodeEmptyOperator, Subject: "(operator)", Message: "operator name must be non-empty"}
		}
		if rule.MinArgs < 0 {
			return nil, &Error{Code: ErrCodeBadArity, Subject: name, Message: fmt.Sprintf("min_args must be >= 0, got %d", rule.MinArgs)}
		}
		if rule.MaxArgs != Unbounded && rule.MaxArgs < rule.MinArgs {
			return nil, &Error{Code: ErrCodeBadArity, Subject: name, Message: fmt.Sprintf("max_args %d below min_args %d", rule.MaxArgs, rule.MinArgs)}
		}
		for kwName, kw := range rule.Kwargs {
			subject := name + "." + kwName
			switch kw.Type {
			case TypeBool, TypeInt, TypeFloat, TypeString:
			default:
				return nil, &Error{Code: ErrCodeBadKwargType, Subject: subject, Message: fmt.Sprintf("unknown type %q", kw.Type)}
			}
			if kw.MinVal != nil && kw.MaxVal != nil && *kw.MinVal > *kw.MaxVal {
				return nil, &Error{Code: ErrCodeBadRange, Subject: subject, Message: fmt.Sprintf("min_val %v above max_val %v", *kw.MinVal, *kw.MaxVal)}
			}
		}
		s.operators[name] = rule
	}

	for _, decl := range datafields {
		if strings.TrimSpace(decl.ID) == "" {
			return nil, &Error{Code: ErrCodeEmptyDatafield, Subject: "(datafield)", Message: "datafield id must be non-empty"}
		}
		switch decl.Kind {
		case KindMatrix, KindVector, KindGroup:
		default:
			return nil, &Error{Code: ErrCodeBadKind, Subject: decl.ID, Message: fmt.Sprintf("unknown kind %q", decl.Kind)}
		}
		if _, dup := s.datafields[decl.ID]; dup {
			return nil, &Error{Code: ErrCodeDuplicateField, Subject: decl.ID, Message: "duplicate datafield id"}
		}
		s.datafields[decl.ID] = decl
	}

	return s, nil
}

// LookupOperator returns the rule for an operator name, if declared.
func (s *Schema) LookupOperator(name string) (OperatorRule, bool) {
	rule, ok := s.operators[name]
	return rule, ok
}

// LookupDatafield returns the declaration for a datafield id, if
// declared. Unknown ids have no declaration and are invalid by
// absence.
func (s *Schema) LookupDatafield(id string) (DatafieldDecl, bool) {
	decl, ok := s.datafields[id]
	return decl, ok
}

// VectorPrefix returns the prefix marking vector-aware operators.
func (s *Schema) VectorPrefix() string {
	return s.vectorPrefix
}
