package expr

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent

	// keywords
	tokAnd
	tokOr
	tokNot

	// arithmetic
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokPower

	// comparisons
	tokLT
	tokLE
	tokGT
	tokGE
	tokEQ
	tokNE

	tokLParen
	tokRParen
	tokComma
	tokDot
)

var keywords = map[string]tokenKind{
	"and": tokAnd,
	"or":  tokOr,
	"not": tokNot,
}

// IsKeyword reports whether name is reserved by the condition language.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return strconv.Quote(t.text)
}

// SyntaxError describes why an expression could not be parsed.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

// lex splits src into tokens. The token list always ends with tokEOF.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
			continue

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			// A dot only belongs to the literal when a digit follows, so
			// "(a).is_integer()" and "4 .is_integer()" keep their method call.
			if i+1 < len(src) && src[i] == '.' && isDigit(src[i+1]) {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			text := src[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("invalid number %q", text)}
			}
			if i < len(src) && isIdentStart(src[i]) {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("invalid number %q", src[start:i+1])}
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: v, pos: start})
			continue

		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			text := src[start:i]
			kind := tokIdent
			if kw, ok := keywords[text]; ok {
				kind = kw
			}
			toks = append(toks, token{kind: kind, text: text, pos: start})
			continue
		}

		kind, width := operator(src[i:])
		if width == 0 {
			return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
		toks = append(toks, token{kind: kind, text: src[i : i+width], pos: i})
		i += width
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

// operator matches the longest operator at the start of s.
func operator(s string) (tokenKind, int) {
	if len(s) >= 2 {
		switch s[:2] {
		case "**":
			return tokPower, 2
		case "<=":
			return tokLE, 2
		case ">=":
			return tokGE, 2
		case "==":
			return tokEQ, 2
		case "!=":
			return tokNE, 2
		}
	}
	switch s[0] {
	case '+':
		return tokPlus, 1
	case '-':
		return tokMinus, 1
	case '*':
		return tokStar, 1
	case '/':
		return tokSlash, 1
	case '%':
		return tokPercent, 1
	case '<':
		return tokLT, 1
	case '>':
		return tokGT, 1
	case '(':
		return tokLParen, 1
	case ')':
		return tokRParen, 1
	case ',':
		return tokComma, 1
	case '.':
		return tokDot, 1
	}
	return tokEOF, 0
}
