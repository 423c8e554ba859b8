package expr

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/mathgen/internal/logger"
)

func num(t *testing.T, v Value) float64 {
	t.Helper()
	require.Equal(t, KindNumber, v.Kind(), "expected a number, got %s", v)
	f, _ := v.Float()
	return f
}

func TestEvaluateArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 - 3", 3},
		{"12 / 4 / 3", 1},
		{"7 / 2", 3.5},
		{"2 ** 3 ** 2", 512},
		{"-2 ** 2", -4},
		{"(-2) ** 2", 4},
		{"2 ** -1", 0.5},
		{"--3", 3},
		{"+3 - -3", 6},
		{"-1 % 3", 2},
		{"1 % -3", -2},
		{"7 % 3", 1},
		{"-7 % -3", -1},
		{"5.5 % 2", 1.5},
		{".5 + 1.25", 1.75},
		{"b*b - 4*a*c", 25 - 24},
	}

	b := Binding{"a": 1, "b": 5, "c": 6}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.InDelta(t, tt.want, num(t, Evaluate(tt.src, b)), 1e-12)
		})
	}
}

func TestEvaluateComparisonsAndLogic(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 4", false},
		{"4 >= 5", false},
		{"1 == 1.0", true},
		{"1 != 1", false},
		{"not 1 == 2", true},
		{"not not 0", false},
		{"1 < 2 and 2 < 3", true},
		{"1 > 2 or 2 < 3", true},
		{"0 or 0", false},
		{"1 and 2", true},
		{"is_square(4) == 1", true},
		{"is_square(5) == 0", true},
		{"not 1 < 2 or 3 < 4", true},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v := Evaluate(tt.src, nil)
			require.Equal(t, KindBool, v.Kind())
			assert.Equal(t, tt.want, v.Truthy())
		})
	}
}

func TestEvaluateDivisionByZeroIsUndefined(t *testing.T) {
	for _, src := range []string{"1/0", "1 % 0", "0 ** -1", "a / (b - b)"} {
		t.Run(src, func(t *testing.T) {
			v := Evaluate(src, Binding{"a": 1, "b": 2})
			assert.True(t, v.IsUndefined())
			assert.False(t, v.Truthy())
		})
	}

	_, err := MustCompile("1/0").Eval(nil)
	assert.True(t, errors.Is(err, ErrDivisionByZero))
}

func TestEvaluateShortCircuit(t *testing.T) {
	v := Evaluate("a and b", Binding{"a": 0})
	require.False(t, v.IsUndefined(), "right operand must not be evaluated")
	assert.False(t, v.Truthy())

	v = Evaluate("a or b", Binding{"a": 1})
	require.False(t, v.IsUndefined())
	assert.True(t, v.Truthy())

	// the canonical guard against a zero divisor
	p := MustCompile("a != 0 and b % a == 0")
	assert.False(t, p.Test(Binding{"a": 0, "b": 5}))
	_, err := p.Eval(Binding{"a": 0, "b": 5})
	assert.NoError(t, err)
	assert.True(t, p.Test(Binding{"a": 5, "b": 10}))

	// the right side is evaluated when it decides the result
	assert.True(t, Evaluate("a and b", Binding{"a": 1}).IsUndefined())
}

func TestEvaluateComplexResultIsUndefined(t *testing.T) {
	assert.True(t, Evaluate("(-1) ** 0.5", nil).IsUndefined())
	assert.True(t, Evaluate("(b*b - 4*a*c) ** 0.5", Binding{"a": 1, "b": 1, "c": 1}).IsUndefined())

	_, err := MustCompile("(-8) ** (1/3)").Eval(nil)
	assert.True(t, errors.Is(err, ErrDomain))

	// integral exponents of negative bases stay real
	assert.Equal(t, -8.0, num(t, Evaluate("(-2) ** 3", nil)))
}

func TestEvaluateOverflowIsUndefined(t *testing.T) {
	assert.True(t, Evaluate("10 ** 400", nil).IsUndefined())
}

func TestEvaluateUnknownIdentifier(t *testing.T) {
	v, err := MustCompile("x + 1").Eval(Binding{"y": 1})
	assert.True(t, v.IsUndefined())
	assert.True(t, errors.Is(err, ErrUnknownIdentifier))

	_, err = MustCompile("sqrt(4)").Eval(nil)
	assert.True(t, errors.Is(err, ErrUnknownFunction))

	_, err = MustCompile("a.is_even()").Eval(Binding{"a": 2})
	assert.True(t, errors.Is(err, ErrUnknownFunction))
}

func TestEvaluateTypeMismatch(t *testing.T) {
	for _, src := range []string{"(1 < 2) + 1", "-(1 < 2)", "(1 < 2) < 3", "(1 < 2).is_integer()", "abs(1 == 1)"} {
		t.Run(src, func(t *testing.T) {
			_, err := MustCompile(src).Eval(nil)
			assert.True(t, errors.Is(err, ErrTypeMismatch), "got %v", err)
		})
	}

	// equality treats booleans as 0/1
	assert.True(t, Evaluate("(1 < 2) == 1", nil).Truthy())
}

func TestEvaluateSyntaxErrorsAreUndefined(t *testing.T) {
	for _, src := range []string{
		"",
		"1 +",
		"(1 + 2",
		"1 + 2)",
		"a = 1",
		"a === 1",
		"1 < 2 < 3",
		"a.is_integer",
		"a.(1)",
		"min(1,)",
		"1 2",
		"3x",
		"a && b",
		"5.",
	} {
		t.Run(src, func(t *testing.T) {
			p, err := Compile(src)
			require.Error(t, err)
			var se *SyntaxError
			assert.True(t, errors.As(err, &se))
			assert.True(t, p.Value(Binding{"a": 1, "b": 1}).IsUndefined())
			assert.False(t, p.Test(Binding{"a": 1, "b": 1}))
		})
	}
}

func TestEvaluateDeepNestingIsRejected(t *testing.T) {
	src := ""
	for i := 0; i < 500; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < 500; i++ {
		src += ")"
	}
	_, err := Compile(src)
	assert.Error(t, err)
}

func TestIsSquare(t *testing.T) {
	assert.True(t, IsSquare(16.0))
	assert.True(t, IsSquare(0))
	assert.True(t, IsSquare(1))
	assert.False(t, IsSquare(15.0))
	assert.False(t, IsSquare(-4.0))
	assert.False(t, IsSquare(2.25))
	assert.False(t, IsSquare(math.Inf(1)))
	assert.False(t, IsSquare(math.NaN()))
	assert.True(t, IsSquare(94906265*94906265.0))
	assert.False(t, IsSquare(94906265*94906265.0+1))
	assert.True(t, IsSquare(math.Ldexp(1, 80)))
	assert.False(t, IsSquare(math.Ldexp(1, 81)))

	assert.True(t, Evaluate("is_square(16.0)", nil).Truthy())
	assert.False(t, Evaluate("is_square(15.0)", nil).Truthy())
	v := Evaluate("is_square(-4.0)", nil)
	assert.False(t, v.IsUndefined())
	assert.False(t, v.Truthy())
}

func TestIsIntegerMethod(t *testing.T) {
	b := Binding{"a": 2, "b": 3}
	assert.True(t, Evaluate("a.is_integer()", b).Truthy())
	assert.True(t, Evaluate("(a + b).is_integer()", b).Truthy())
	assert.False(t, Evaluate("(a / b).is_integer()", b).Truthy())
	assert.True(t, Evaluate("(2*a).is_integer() and (b % a == 1)", b).Truthy())
	assert.True(t, Evaluate("4 .is_integer()", nil).Truthy())
	assert.False(t, Evaluate("2.5.is_integer()", nil).Truthy())
}

func TestOtherBuiltins(t *testing.T) {
	assert.Equal(t, 3.0, num(t, Evaluate("abs(-3)", nil)))
	assert.Equal(t, -1.0, num(t, Evaluate("min(3, -1, 2)", nil)))
	assert.Equal(t, 3.0, num(t, Evaluate("max(3, -1, 2)", nil)))
	assert.Equal(t, 2.0, num(t, Evaluate("round(2.5)", nil)))
	assert.Equal(t, 4.0, num(t, Evaluate("round(3.5)", nil)))
	assert.Equal(t, 0.12, num(t, Evaluate("round(0.125, 2)", nil)))
	assert.Equal(t, 1.33, num(t, Evaluate("round(4/3, 2)", nil)))
	assert.Equal(t, 1200.0, num(t, Evaluate("round(1234, -2)", nil)))
	assert.Equal(t, 4.0, num(t, Evaluate("isqrt(17)", nil)))
	assert.True(t, Evaluate("isqrt(-1)", nil).IsUndefined())
	assert.True(t, Evaluate("isqrt(2.5)", nil).IsUndefined())

	assert.Equal(t, 1.5, num(t, Evaluate("round(1.5, 10 ** 12)", nil)))
	assert.Equal(t, 1.5, num(t, Evaluate("round(1.5, 10 ** 20)", nil)))
	assert.Equal(t, 0.0, num(t, Evaluate("round(1.5, -(10 ** 20))", nil)))
	assert.Equal(t, 0.0, num(t, Evaluate("round(1234, -400)", nil)))
	assert.Equal(t, 1e308, num(t, Evaluate("round(10 ** 308, 342)", nil)))

	_, err := MustCompile("min(1)").Eval(nil)
	assert.True(t, errors.Is(err, ErrArity))
	_, err = MustCompile("is_square(1, 2)").Eval(nil)
	assert.True(t, errors.Is(err, ErrArity))
}

func TestProgramIntrospection(t *testing.T) {
	p := MustCompile("(a != 0) and is_square(c) and (c % a == 0) or b.is_integer()")
	assert.Equal(t, []string{"a", "b", "c"}, p.Variables())
	assert.Equal(t, "((((a != 0) and is_square(c)) and ((c % a) == 0)) or b.is_integer())", p.String())

	bad, err := Compile("a +")
	assert.Error(t, err)
	assert.Equal(t, err, bad.Err())
	assert.Nil(t, bad.Variables())
	assert.Equal(t, "<invalid>", bad.String())
}

func TestNegativeInfinityIsNotUndefined(t *testing.T) {
	v := Evaluate("-(10 ** 300) * 10 ** 300", nil)
	require.False(t, v.IsUndefined())
	f, ok := v.Float()
	assert.True(t, ok)
	assert.True(t, math.IsInf(f, -1))
}

func TestMustCompilePanicsOnSyntaxError(t *testing.T) {
	assert.Panics(t, func() { MustCompile("(") })
}

const (
	infLit = "(10 ** 300 * 10 ** 300)"
	nanLit = "(10 ** 300 * 10 ** 300 - 10 ** 300 * 10 ** 300)"
)

func TestBuiltinsWithExtremeArguments(t *testing.T) {
	tests := []struct {
		expr      string
		undefined bool
		err       error
	}{
		{expr: "is_square(" + infLit + ")"},
		{expr: "is_square(" + nanLit + ")"},
		{expr: "is_square(10 ** 300)"},
		{expr: "is_square(-(10 ** 300))"},
		{expr: "abs(" + infLit + ")"},
		{expr: "abs(" + nanLit + ")"},
		{expr: "min(" + nanLit + ", 1, -" + infLit + ")"},
		{expr: "max(" + infLit + ", " + nanLit + ")"},
		{expr: "round(" + infLit + ")", undefined: true, err: ErrDomain},
		{expr: "round(" + nanLit + ")", undefined: true, err: ErrDomain},
		{expr: "round(" + infLit + ", 2)"},
		{expr: "round(1.5, " + infLit + ")", undefined: true, err: ErrDomain},
		{expr: "round(1.5, -" + infLit + ")", undefined: true, err: ErrDomain},
		{expr: "round(1.5, " + nanLit + ")", undefined: true, err: ErrDomain},
		{expr: "round(1.5, 10 ** 300)"},
		{expr: "round(1.5, -(10 ** 300))"},
		{expr: "round(10 ** -300, 330)"},
		{expr: "round(1.5, 0.5)", undefined: true, err: ErrTypeMismatch},
		{expr: "isqrt(" + infLit + ")", undefined: true, err: ErrTypeMismatch},
		{expr: "isqrt(" + nanLit + ")", undefined: true, err: ErrTypeMismatch},
		{expr: "isqrt(10 ** 300)"},
		{expr: "isqrt(-(10 ** 300))", undefined: true, err: ErrDomain},
		{expr: infLit + ".is_integer()"},
		{expr: nanLit + ".is_integer()"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			var (
				v   Value
				err error
			)
			require.NotPanics(t, func() { v, err = MustCompile(tt.expr).Eval(nil) })
			assert.Equal(t, tt.undefined, v.IsUndefined(), "value %s", v)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// exprGen builds random expressions from the grammar's productions, with
// extreme literals mixed in.
type exprGen struct {
	rng *rand.Rand
}

var (
	genLiterals = []string{"0", "1", "-1", "2", "0.5", "3.25", "10 ** 12", "10 ** 20", "10 ** 300", "-(10 ** 300)", "10 ** -300", infLit, nanLit}
	genIdents   = []string{"a", "b", "c", "missing"}
	genArith    = []string{"+", "-", "*", "/", "%", "**"}
	genCompare  = []string{"<", "<=", ">", ">=", "==", "!="}
	genCalls    = []string{"is_square", "abs", "min", "max", "round", "isqrt", "nope"}
)

func (g *exprGen) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}

func (g *exprGen) expr(depth int) string {
	if depth <= 0 {
		if g.rng.Intn(2) == 0 {
			return g.pick(genLiterals)
		}
		return g.pick(genIdents)
	}
	switch g.rng.Intn(8) {
	case 0:
		return "-" + g.expr(depth-1)
	case 1:
		return "(" + g.expr(depth-1) + " " + g.pick(genArith) + " " + g.expr(depth-1) + ")"
	case 2:
		return "(" + g.expr(depth-1) + " " + g.pick(genCompare) + " " + g.expr(depth-1) + ")"
	case 3:
		op := "and"
		if g.rng.Intn(2) == 0 {
			op = "or"
		}
		return "(" + g.expr(depth-1) + " " + op + " " + g.expr(depth-1) + ")"
	case 4:
		return "not " + g.expr(depth-1)
	case 5:
		args := make([]string, g.rng.Intn(4))
		for i := range args {
			args[i] = g.expr(depth - 1)
		}
		return g.pick(genCalls) + "(" + strings.Join(args, ", ") + ")"
	case 6:
		return "(" + g.expr(depth-1) + ").is_integer()"
	default:
		return g.expr(0)
	}
}

// tokens joins random grammar tokens, which are mostly not well formed.
func (g *exprGen) tokens(n int) string {
	all := append(append(append(append([]string{"(", ")", ",", ".", "is_integer", "and", "or", "not", "@", "1e400"}, genLiterals...), genIdents...), genArith...), genCompare...)
	all = append(all, genCalls...)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = g.pick(all)
	}
	return strings.Join(parts, " ")
}

func TestEvaluateNeverPanics(t *testing.T) {
	g := &exprGen{rng: rand.New(rand.NewSource(1))}
	bindings := []Binding{
		{},
		{"a": 0, "b": 0, "c": 0},
		{"a": 3, "b": -2, "c": 0.5},
		{"a": math.Inf(1), "b": math.NaN(), "c": -1e308},
		{"a": 1e12, "b": -1e20, "c": 5e-324},
	}

	for i := 0; i < 20000; i++ {
		var src string
		if i%2 == 0 {
			src = g.expr(1 + g.rng.Intn(4))
		} else {
			src = g.tokens(1 + g.rng.Intn(12))
		}
		b := bindings[i%len(bindings)]
		ok := assert.NotPanics(t, func() {
			v := Evaluate(src, b)
			_ = v.Truthy()
			_ = v.String()
		}, fmt.Sprintf("expression %q", src))
		if !ok {
			return
		}
	}
}

func TestValueCountsDiagnosticsAtEveryLevel(t *testing.T) {
	prev := logger.GetLevel()
	defer logger.SetLevel(prev)

	p := MustCompile("a % b == 0")
	for _, level := range []logger.Level{logger.LevelInfo, logger.LevelDebug} {
		logger.SetLevel(level)
		before := logger.EvaluationDiagnostics.Load()
		assert.True(t, p.Value(Binding{"a": 4, "b": 0}).IsUndefined())
		assert.Equal(t, before+1, logger.EvaluationDiagnostics.Load(), "level %s", level)
	}
}
