package golang

import (
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
)

// Grammar recognises weight annotations written as Go expressions. Go has no
// tuple expressions, so "(ok, fail)" is recognised lexically: a parenthesised
// list with at least one top-level comma whose elements each parse as an
// expression.
type Grammar struct{}

// Identifier matches a single non-keyword identifier.
func (Grammar) Identifier(raw string) (string, bool) {
	return raw, token.IsIdentifier(raw)
}

// Expression matches anything go/parser accepts as an expression.
func (Grammar) Expression(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	if _, err := parser.ParseExpr(raw); err != nil {
		return "", false
	}
	return raw, true
}

// Tuple matches "(e1, e2, ...)". A trailing comma is allowed.
func (Grammar) Tuple(raw string) ([]string, bool) {
	src := []byte(raw)
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var s scanner.Scanner
	s.Init(file, src, nil, 0)

	var (
		depth  int
		closed = -1 // offset of the ')' matching the opening '('
		commas []int
	)
	for first := true; ; first = false {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		// The scanner inserts a semicolon after a closing paren at EOF.
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		if closed >= 0 {
			// Something follows the closing paren: "(a, b).X" or "(a)(b)".
			return nil, false
		}
		off := file.Offset(pos)
		if first && tok != token.LPAREN {
			return nil, false
		}
		switch tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
			if depth == 0 {
				if tok != token.RPAREN {
					return nil, false
				}
				closed = off
			}
		case token.COMMA:
			if depth == 1 {
				commas = append(commas, off)
			}
		}
	}
	if s.ErrorCount > 0 || closed < 0 || len(commas) == 0 {
		return nil, false
	}

	var elems []string
	start := 1
	for _, c := range append(commas, closed) {
		text := strings.TrimSpace(raw[start:c])
		start = c + 1
		if text == "" {
			if c == closed {
				break // trailing comma
			}
			return nil, false
		}
		if _, err := parser.ParseExpr(text); err != nil {
			return nil, false
		}
		elems = append(elems, text)
	}
	return elems, true
}
