package ir

import (
	"fmt"
	"strconv"
)

// LitValue is a sealed interface over the literal kinds the grammar
// admits. Only LitBool, LitInt, LitFloat, and LitString implement it.
type LitValue interface {
	litValue() // Sealed - only these types implement it

	// Kind reports the literal's runtime kind.
	Kind() LitKind
}

// LitKind enumerates the literal kinds checkable against rule types.
type LitKind string

const (
	KindBool   LitKind = "bool"
	KindInt    LitKind = "int"
	KindFloat  LitKind = "float"
	KindString LitKind = "str"
)

// LitBool represents a boolean literal (True / False).
type LitBool bool

func (LitBool) litValue()     {}
func (LitBool) Kind() LitKind { return KindBool }

// LitInt represents an integer literal. Always int64.
type LitInt int64

func (LitInt) litValue()     {}
func (LitInt) Kind() LitKind { return KindInt }

// LitFloat represents a floating-point literal.
type LitFloat float64

func (LitFloat) litValue()     {}
func (LitFloat) Kind() LitKind { return KindFloat }

// LitString represents a string literal.
type LitString string

func (LitString) litValue()     {}
func (LitString) Kind() LitKind { return KindString }

// Float returns the numeric value of an int or float literal.
// The second result is false for non-numeric literals. Integer
// literals widen to float64 here; the caller decides whether that
// widening is acceptable for the rule being checked.
func Float(v LitValue) (float64, bool) {
	switch val := v.(type) {
	case LitInt:
		return float64(val), true
	case LitFloat:
		return float64(val), true
	default:
		return 0, false
	}
}

// FormatLit renders a literal the way it would appear in an expression.
// Used for violation messages.
func FormatLit(v LitValue) string {
	switch val := v.(type) {
	case LitBool:
		if val {
			return "True"
		}
		return "False"
	case LitInt:
		return strconv.FormatInt(int64(val), 10)
	case LitFloat:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case LitString:
		return strconv.Quote(string(val))
	default:
		return fmt.Sprintf("%v", v)
	}
}
