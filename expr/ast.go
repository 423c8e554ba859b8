package expr

import (
	"strconv"
	"strings"
)

// node is a parsed expression. Evaluation never panics; every failure is
// returned as an error and folded into Undefined by the caller.
type node interface {
	eval(b Binding) (Value, error)
	write(sb *strings.Builder)
}

type numberLit struct {
	value float64
}

type identRef struct {
	name string
}

type unaryExpr struct {
	op tokenKind
	x  node
}

type binaryExpr struct {
	op   tokenKind
	l, r node
}

type compareExpr struct {
	op   tokenKind
	l, r node
}

// logicalExpr is "and"/"or"; the right side is only evaluated when the left
// side does not already decide the result.
type logicalExpr struct {
	op   tokenKind
	l, r node
}

type notExpr struct {
	x node
}

type callExpr struct {
	name string
	args []node
}

type methodExpr struct {
	recv node
	name string
}

var opText = map[tokenKind]string{
	tokAnd:     "and",
	tokOr:      "or",
	tokNot:     "not",
	tokPlus:    "+",
	tokMinus:   "-",
	tokStar:    "*",
	tokSlash:   "/",
	tokPercent: "%",
	tokPower:   "**",
	tokLT:      "<",
	tokLE:      "<=",
	tokGT:      ">",
	tokGE:      ">=",
	tokEQ:      "==",
	tokNE:      "!=",
}

func (n *numberLit) write(sb *strings.Builder) {
	sb.WriteString(strconv.FormatFloat(n.value, 'g', -1, 64))
}

func (n *identRef) write(sb *strings.Builder) { sb.WriteString(n.name) }

func (n *unaryExpr) write(sb *strings.Builder) {
	sb.WriteString("(")
	sb.WriteString(opText[n.op])
	n.x.write(sb)
	sb.WriteString(")")
}

func writeInfix(sb *strings.Builder, op tokenKind, l, r node) {
	sb.WriteString("(")
	l.write(sb)
	sb.WriteString(" ")
	sb.WriteString(opText[op])
	sb.WriteString(" ")
	r.write(sb)
	sb.WriteString(")")
}

func (n *binaryExpr) write(sb *strings.Builder)  { writeInfix(sb, n.op, n.l, n.r) }
func (n *compareExpr) write(sb *strings.Builder) { writeInfix(sb, n.op, n.l, n.r) }
func (n *logicalExpr) write(sb *strings.Builder) { writeInfix(sb, n.op, n.l, n.r) }

func (n *notExpr) write(sb *strings.Builder) {
	sb.WriteString("(not ")
	n.x.write(sb)
	sb.WriteString(")")
}

func (n *callExpr) write(sb *strings.Builder) {
	sb.WriteString(n.name)
	sb.WriteString("(")
	for i, a := range n.args {
		if i > 0 {
			sb.WriteString(", ")
		}
		a.write(sb)
	}
	sb.WriteString(")")
}

func (n *methodExpr) write(sb *strings.Builder) {
	n.recv.write(sb)
	sb.WriteString(".")
	sb.WriteString(n.name)
	sb.WriteString("()")
}

// identifiers collects the free variable names referenced by n, excluding
// function names.
func identifiers(n node, seen map[string]struct{}) {
	switch n := n.(type) {
	case *identRef:
		seen[n.name] = struct{}{}
	case *unaryExpr:
		identifiers(n.x, seen)
	case *binaryExpr:
		identifiers(n.l, seen)
		identifiers(n.r, seen)
	case *compareExpr:
		identifiers(n.l, seen)
		identifiers(n.r, seen)
	case *logicalExpr:
		identifiers(n.l, seen)
		identifiers(n.r, seen)
	case *notExpr:
		identifiers(n.x, seen)
	case *callExpr:
		for _, a := range n.args {
			identifiers(a, seen)
		}
	case *methodExpr:
		identifiers(n.recv, seen)
	}
}
