// Package expr implements the condition language used to constrain generated
// exercises: arithmetic, comparisons and short-circuit boolean logic over
// float64 variables, plus a small fixed set of built-ins.
//
// Evaluation never fails loudly. Any syntax error, unbound variable, division
// by zero, complex intermediate result or type mismatch produces Undefined,
// which is never truthy.
package expr

import (
	"sort"
	"strings"

	"github.com/liamcoop/mathgen/internal/logger"
)

// Program is a parsed expression ready to be evaluated many times.
// A Program is immutable and safe for concurrent use.
type Program struct {
	src  string
	root node
	err  error
}

// Compile parses src. On failure it still returns a usable Program that
// evaluates to Undefined, together with the syntax error.
func Compile(src string) (*Program, error) {
	root, err := parse(src)
	return &Program{src: src, root: root, err: err}, err
}

// MustCompile is like Compile but panics on a syntax error. Intended for
// expressions known at build time.
func MustCompile(src string) *Program {
	p, err := Compile(src)
	if err != nil {
		panic("expr: MustCompile(" + src + "): " + err.Error())
	}
	return p
}

// Source returns the text the program was compiled from.
func (p *Program) Source() string { return p.src }

// Err returns the compile error, if any.
func (p *Program) Err() error { return p.err }

// String returns a fully parenthesised rendering of the parsed tree.
func (p *Program) String() string {
	if p.root == nil {
		return "<invalid>"
	}
	var sb strings.Builder
	p.root.write(&sb)
	return sb.String()
}

// Variables returns the sorted variable names the expression refers to.
func (p *Program) Variables() []string {
	if p.root == nil {
		return nil
	}
	seen := make(map[string]struct{})
	identifiers(p.root, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Eval evaluates the program against b. The error is non-nil exactly when
// the result is Undefined and explains why.
func (p *Program) Eval(b Binding) (Value, error) {
	if p.err != nil {
		return Undefined, p.err
	}
	return p.root.eval(b)
}

// Value evaluates the program and folds any failure into Undefined, logging
// the reason as a diagnostic.
func (p *Program) Value(b Binding) Value {
	v, err := p.Eval(b)
	if err != nil {
		logger.EvaluationDiagnostics.Add(1)
		if logger.Enabled(logger.LevelDebug) {
			logger.Debug("expression undefined", "expression", p.src, "reason", err.Error())
		}
		return Undefined
	}
	return v
}

// Test reports whether the program is satisfied by b: the result is defined
// and truthy.
func (p *Program) Test(b Binding) bool {
	return p.Value(b).Truthy()
}

// Evaluate compiles and evaluates src in one step. It never fails; errors
// become Undefined.
func Evaluate(src string, b Binding) Value {
	p, _ := Compile(src)
	return p.Value(b)
}
