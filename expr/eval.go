package expr

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownIdentifier is returned for a variable missing from the binding.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrUnknownFunction is returned for a call to a name that is not a built-in.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrDivisionByZero is returned by "/", "%" and a zero base raised to a negative power.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrDomain is returned for results outside the reals (complex or overflowing).
	ErrDomain = errors.New("math domain error")

	// ErrTypeMismatch is returned when an operator receives a boolean where a number is required.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrArity is returned when a built-in is called with the wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")
)

// Binding maps variable names to their values for one evaluation.
type Binding map[string]float64

func (n *numberLit) eval(Binding) (Value, error) { return Number(n.value), nil }

func (n *identRef) eval(b Binding) (Value, error) {
	v, ok := b[n.name]
	if !ok {
		return Undefined, fmt.Errorf("%w %q", ErrUnknownIdentifier, n.name)
	}
	return Number(v), nil
}

// number evaluates n and requires a numeric result.
func number(n node, b Binding, op string) (float64, error) {
	v, err := n.eval(b)
	if err != nil {
		return 0, err
	}
	if v.kind != KindNumber {
		return 0, fmt.Errorf("%w: %s expects a number, got %s", ErrTypeMismatch, op, v.kind)
	}
	return v.num, nil
}

func (n *unaryExpr) eval(b Binding) (Value, error) {
	x, err := number(n.x, b, "unary "+opText[n.op])
	if err != nil {
		return Undefined, err
	}
	if n.op == tokMinus {
		return Number(-x), nil
	}
	return Number(x), nil
}

func (n *binaryExpr) eval(b Binding) (Value, error) {
	op := opText[n.op]
	l, err := number(n.l, b, op)
	if err != nil {
		return Undefined, err
	}
	r, err := number(n.r, b, op)
	if err != nil {
		return Undefined, err
	}
	switch n.op {
	case tokPlus:
		return Number(l + r), nil
	case tokMinus:
		return Number(l - r), nil
	case tokStar:
		return Number(l * r), nil
	case tokSlash:
		if r == 0 {
			return Undefined, ErrDivisionByZero
		}
		return Number(l / r), nil
	case tokPercent:
		return floorMod(l, r)
	case tokPower:
		return pow(l, r)
	}
	return Undefined, fmt.Errorf("unsupported operator %s", op)
}

// floorMod takes the sign of the divisor: -1 % 3 == 2, 1 % -3 == -2.
func floorMod(l, r float64) (Value, error) {
	if r == 0 {
		return Undefined, ErrDivisionByZero
	}
	m := math.Mod(l, r)
	if m != 0 && (m < 0) != (r < 0) {
		m += r
	}
	if m == 0 {
		// normalise -0 to the divisor's sign
		m = math.Copysign(0, r)
	}
	return Number(m), nil
}

func pow(base, exp float64) (Value, error) {
	if base == 0 && exp < 0 {
		return Undefined, fmt.Errorf("%w: zero raised to a negative power", ErrDivisionByZero)
	}
	if base < 0 && !math.IsInf(exp, 0) && exp != math.Trunc(exp) {
		return Undefined, fmt.Errorf("%w: negative base to a fractional power is complex", ErrDomain)
	}
	r := math.Pow(base, exp)
	if math.IsNaN(r) {
		return Undefined, ErrDomain
	}
	if math.IsInf(r, 0) && !math.IsInf(base, 0) && !math.IsInf(exp, 0) {
		return Undefined, fmt.Errorf("%w: result too large", ErrDomain)
	}
	return Number(r), nil
}

func (n *compareExpr) eval(b Binding) (Value, error) {
	lv, err := n.l.eval(b)
	if err != nil {
		return Undefined, err
	}
	rv, err := n.r.eval(b)
	if err != nil {
		return Undefined, err
	}

	switch n.op {
	case tokEQ, tokNE:
		eq := lv.b == rv.b
		if lv.kind == KindNumber || rv.kind == KindNumber {
			l, _ := lv.Float()
			r, _ := rv.Float()
			eq = l == r
		}
		return Bool(eq == (n.op == tokEQ)), nil
	}

	if lv.kind != KindNumber || rv.kind != KindNumber {
		return Undefined, fmt.Errorf("%w: %s compares %s with %s", ErrTypeMismatch, opText[n.op], lv.kind, rv.kind)
	}
	l, r := lv.num, rv.num
	switch n.op {
	case tokLT:
		return Bool(l < r), nil
	case tokLE:
		return Bool(l <= r), nil
	case tokGT:
		return Bool(l > r), nil
	default:
		return Bool(l >= r), nil
	}
}

func (n *logicalExpr) eval(b Binding) (Value, error) {
	l, err := n.l.eval(b)
	if err != nil {
		return Undefined, err
	}
	if n.op == tokAnd && !l.Truthy() {
		return Bool(false), nil
	}
	if n.op == tokOr && l.Truthy() {
		return Bool(true), nil
	}
	r, err := n.r.eval(b)
	if err != nil {
		return Undefined, err
	}
	return Bool(r.Truthy()), nil
}

func (n *notExpr) eval(b Binding) (Value, error) {
	x, err := n.x.eval(b)
	if err != nil {
		return Undefined, err
	}
	return Bool(!x.Truthy()), nil
}

func (n *callExpr) eval(b Binding) (Value, error) {
	fn, ok := builtins[n.name]
	if !ok {
		return Undefined, fmt.Errorf("%w %q", ErrUnknownFunction, n.name)
	}
	if len(n.args) < fn.minArgs || (fn.maxArgs >= 0 && len(n.args) > fn.maxArgs) {
		return Undefined, fmt.Errorf("%w: %s takes %s, got %d", ErrArity, n.name, fn.arity(), len(n.args))
	}
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := number(a, b, n.name)
		if err != nil {
			return Undefined, err
		}
		args[i] = v
	}
	return fn.call(args)
}

func (n *methodExpr) eval(b Binding) (Value, error) {
	m, ok := methods[n.name]
	if !ok {
		return Undefined, fmt.Errorf("%w %q", ErrUnknownFunction, "."+n.name)
	}
	x, err := number(n.recv, b, "."+n.name+"()")
	if err != nil {
		return Undefined, err
	}
	return m(x), nil
}
