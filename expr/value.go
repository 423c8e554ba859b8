package expr

import (
	"math"
	"strconv"
)

// Kind classifies a Value.
type Kind uint8

const (
	// KindUndefined marks a failed evaluation. It is never truthy.
	KindUndefined Kind = iota
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "undefined"
	}
}

// Value is the result of evaluating an expression: a float64, a boolean, or
// Undefined. The zero Value is Undefined, so a legitimately computed
// negative infinity is never mistaken for a failure.
type Value struct {
	kind Kind
	num  float64
	b    bool
}

// Undefined is the result of any parse or runtime failure.
var Undefined = Value{}

// Number wraps f.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v is the Undefined result.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// Float returns the numeric value of v. Booleans convert to 0 or 1; the
// second result is false for Undefined.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return math.NaN(), false
}

// Truthy reports whether v counts as satisfied: a nonzero number or true.
// Undefined is never truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0
	case KindBool:
		return v.b
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	}
	return "undefined"
}
