package expr

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

type builtin struct {
	minArgs int
	maxArgs int // -1 for variadic
	call    func(args []float64) (Value, error)
}

func (b builtin) arity() string {
	switch {
	case b.maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", b.minArgs)
	case b.minArgs == b.maxArgs:
		return fmt.Sprintf("%d arguments", b.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
}

// builtins is the fixed function scope of every expression.
var builtins = map[string]builtin{
	"is_square": {minArgs: 1, maxArgs: 1, call: func(a []float64) (Value, error) {
		return Bool(IsSquare(a[0])), nil
	}},
	"abs": {minArgs: 1, maxArgs: 1, call: func(a []float64) (Value, error) {
		return Number(math.Abs(a[0])), nil
	}},
	"min": {minArgs: 2, maxArgs: -1, call: func(a []float64) (Value, error) {
		m := a[0]
		for _, v := range a[1:] {
			if v < m {
				m = v
			}
		}
		return Number(m), nil
	}},
	"max": {minArgs: 2, maxArgs: -1, call: func(a []float64) (Value, error) {
		m := a[0]
		for _, v := range a[1:] {
			if v > m {
				m = v
			}
		}
		return Number(m), nil
	}},
	"round": {minArgs: 1, maxArgs: 2, call: func(a []float64) (Value, error) {
		if len(a) == 1 {
			if math.IsInf(a[0], 0) || math.IsNaN(a[0]) {
				return Undefined, fmt.Errorf("%w: cannot round %v to an integer", ErrDomain, a[0])
			}
			return Number(math.RoundToEven(a[0])), nil
		}
		n := a[1]
		if math.IsInf(n, 0) || math.IsNaN(n) {
			return Undefined, fmt.Errorf("%w: round precision must be finite", ErrDomain)
		}
		if n != math.Trunc(n) {
			return Undefined, fmt.Errorf("%w: round precision must be an integer", ErrTypeMismatch)
		}
		return Number(RoundHalfEven(a[0], clampPlaces(n))), nil
	}},
	"isqrt": {minArgs: 1, maxArgs: 1, call: func(a []float64) (Value, error) {
		x := a[0]
		if !isIntegral(x) {
			return Undefined, fmt.Errorf("%w: isqrt expects an integer, got %v", ErrTypeMismatch, x)
		}
		if x < 0 {
			return Undefined, fmt.Errorf("%w: isqrt of a negative number", ErrDomain)
		}
		root, _ := intSqrt(x)
		return Number(root), nil
	}},
}

// methods are the postfix predicates available on any numeric sub-expression.
var methods = map[string]func(x float64) Value{
	"is_integer": func(x float64) Value { return Bool(isIntegral(x)) },
}

// IsBuiltin reports whether name is bound to a built-in function.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func isIntegral(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x) && x == math.Trunc(x)
}

// IsSquare reports whether x is a finite, integer-valued, nonnegative perfect
// square. Negative, fractional and non-finite inputs yield false.
func IsSquare(x float64) bool {
	if !isIntegral(x) || x < 0 {
		return false
	}
	_, exact := intSqrt(x)
	return exact
}

// maxExactInt is the largest float64 below which every integer is representable.
const maxExactInt = 1 << 53

// intSqrt returns floor(sqrt(x)) for a nonnegative integral x and whether the
// root is exact.
func intSqrt(x float64) (float64, bool) {
	if x < maxExactInt {
		n := uint64(x)
		k := uint64(math.Sqrt(x))
		for k*k > n {
			k--
		}
		for (k+1)*(k+1) <= n {
			k++
		}
		return float64(k), k*k == n
	}
	n, _ := new(big.Float).SetFloat64(x).Int(nil)
	k := new(big.Int).Sqrt(n)
	sq := new(big.Int).Mul(k, k)
	root, _ := new(big.Float).SetInt(k).Float64()
	return root, sq.Cmp(n) == 0
}

// Beyond these bounds rounding is the identity, or always yields zero.
const (
	maxRoundPlaces = 343
	minRoundPlaces = -309
)

// clampPlaces converts a finite integral precision to an int inside
// [minRoundPlaces, maxRoundPlaces].
func clampPlaces(n float64) int {
	switch {
	case n > maxRoundPlaces:
		return maxRoundPlaces
	case n < minRoundPlaces:
		return minRoundPlaces
	}
	return int(n)
}

// RoundHalfEven rounds x to the given number of decimal places using the
// exact binary value of x, ties to even.
func RoundHalfEven(x float64, places int) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	if places >= maxRoundPlaces {
		return x
	}
	if places <= minRoundPlaces {
		return math.Copysign(0, x)
	}
	if places >= 0 {
		r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
		if err != nil {
			return x
		}
		return r
	}
	p := math.Pow(10, float64(-places))
	return math.RoundToEven(x/p) * p
}
