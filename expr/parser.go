package expr

import "fmt"

// maxDepth bounds nesting so a hostile expression cannot exhaust the stack.
const maxDepth = 200

type parser struct {
	toks  []token
	pos   int
	depth int
}

// parse builds the syntax tree for src.
//
// Grammar, loosest binding first:
//
//	expression := or
//	or         := and ("or" and)*
//	and        := not ("and" not)*
//	not        := "not" not | comparison
//	comparison := additive (cmpop additive)?
//	additive   := term (("+" | "-") term)*
//	term       := unary (("*" | "/" | "%") unary)*
//	unary      := ("-" | "+") unary | power
//	power      := postfix ("**" unary)?
//	postfix    := primary ("." ident "(" ")")*
//	primary    := number | ident | ident "(" args ")" | "(" expression ")"
func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.expression()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s", t)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, what string) error {
	if t := p.peek(); t.kind != kind {
		return p.errorf(t, "expected %s, found %s", what, t)
	}
	p.pos++
	return nil
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.errorf(p.peek(), "expression nested too deeply")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expression() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	return p.or()
}

func (p *parser) or() (node, error) {
	l, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		l = &logicalExpr{op: tokOr, l: l, r: r}
	}
	return l, nil
}

func (p *parser) and() (node, error) {
	l, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		r, err := p.not()
		if err != nil {
			return nil, err
		}
		l = &logicalExpr{op: tokAnd, l: l, r: r}
	}
	return l, nil
}

func (p *parser) not() (node, error) {
	if p.accept(tokNot) {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return &notExpr{x: x}, nil
	}
	return p.comparison()
}

func isComparison(k tokenKind) bool {
	switch k {
	case tokLT, tokLE, tokGT, tokGE, tokEQ, tokNE:
		return true
	}
	return false
}

func (p *parser) comparison() (node, error) {
	l, err := p.additive()
	if err != nil {
		return nil, err
	}
	if !isComparison(p.peek().kind) {
		return l, nil
	}
	op := p.next().kind
	r, err := p.additive()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); isComparison(t.kind) {
		return nil, p.errorf(t, "chained comparison %s is not supported, combine with \"and\"", t)
	}
	return &compareExpr{op: op, l: l, r: r}, nil
}

func (p *parser) additive() (node, error) {
	l, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		k := p.peek().kind
		if k != tokPlus && k != tokMinus {
			return l, nil
		}
		p.next()
		r, err := p.term()
		if err != nil {
			return nil, err
		}
		l = &binaryExpr{op: k, l: l, r: r}
	}
}

func (p *parser) term() (node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		k := p.peek().kind
		if k != tokStar && k != tokSlash && k != tokPercent {
			return l, nil
		}
		p.next()
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = &binaryExpr{op: k, l: l, r: r}
	}
}

func (p *parser) unary() (node, error) {
	k := p.peek().kind
	if k != tokMinus && k != tokPlus {
		return p.power()
	}
	p.next()
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &unaryExpr{op: k, x: x}, nil
}

// power is right-associative: the exponent is parsed as a unary, which in
// turn parses a power, so "2 ** 3 ** 2" is "2 ** (3 ** 2)" and "2 ** -1"
// is accepted.
func (p *parser) power() (node, error) {
	base, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if !p.accept(tokPower) {
		return base, nil
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &binaryExpr{op: tokPower, l: base, r: exp}, nil
}

func (p *parser) postfix() (node, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokDot) {
		t := p.next()
		if t.kind != tokIdent {
			return nil, p.errorf(t, "expected method name, found %s", t)
		}
		if err := p.expect(tokLParen, `"("`); err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		x = &methodExpr{recv: x, name: t.text}
	}
	return x, nil
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &numberLit{value: t.num}, nil

	case tokIdent:
		if !p.accept(tokLParen) {
			return &identRef{name: t.text}, nil
		}
		args, err := p.arguments()
		if err != nil {
			return nil, err
		}
		return &callExpr{name: t.text, args: args}, nil

	case tokLParen:
		x, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return x, nil
	}
	return nil, p.errorf(t, "unexpected %s", t)
}

// arguments parses a call's argument list after the opening parenthesis.
func (p *parser) arguments() ([]node, error) {
	var args []node
	if p.accept(tokRParen) {
		return args, nil
	}
	for {
		a, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.accept(tokRParen) {
			return args, nil
		}
		if err := p.expect(tokComma, `"," or ")"`); err != nil {
			return nil, err
		}
	}
}
