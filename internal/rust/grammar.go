// Package rust is the Rust host: it finds #[derive_weight(...)] attributes with
// tree-sitter and renders weighted functions as Rust source for include!.
package rust

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

func newParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(rust.GetLanguage())
	return p
}

// wrapper is the item an annotation is embedded in to be parsed as an
// expression.
const (
	wrapPrefix = "const _W: () = "
	wrapSuffix = ";"
)

// keywords are the strict and reserved keywords of Rust 2021. self, Self,
// super, crate, true and false parse to their own node types and are not
// listed.
var keywords = map[string]bool{
	"as": true, "async": true, "await": true, "break": true, "const": true,
	"continue": true, "dyn": true, "else": true, "enum": true, "extern": true,
	"fn": true, "for": true, "if": true, "impl": true, "in": true, "let": true,
	"loop": true, "match": true, "mod": true, "move": true, "mut": true,
	"pub": true, "ref": true, "return": true, "static": true, "struct": true,
	"trait": true, "type": true, "unsafe": true, "use": true, "where": true,
	"while": true,

	"abstract": true, "become": true, "box": true, "do": true, "final": true,
	"macro": true, "override": true, "priv": true, "try": true, "typeof": true,
	"unsized": true, "virtual": true, "yield": true,
}

// Grammar recognises annotations as Rust expressions by parsing them with
// tree-sitter. A new parser is used per call so the grammar is safe for
// concurrent use.
type Grammar struct{}

// expr returns the type of the expression node raw parses to and the text of
// its named children. ok is false unless raw is exactly one expression.
func (Grammar) expr(raw string) (kind string, children []string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, false
	}
	src := []byte(wrapPrefix + raw + wrapSuffix)
	tree, err := newParser().ParseCtx(context.Background(), nil, src)
	if err != nil {
		return "", nil, false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() || root.NamedChildCount() != 1 {
		return "", nil, false
	}
	item := root.NamedChild(0)
	if item.Type() != "const_item" {
		return "", nil, false
	}
	value := item.ChildByFieldName("value")
	if value == nil || value.Content(src) != raw {
		return "", nil, false
	}
	// tree-sitter recovers a lone keyword as an identifier without flagging
	// an error.
	if value.Type() == "identifier" && keywords[raw] {
		return "", nil, false
	}
	for i := 0; i < int(value.NamedChildCount()); i++ {
		child := value.NamedChild(i)
		if isComment(child) {
			continue
		}
		children = append(children, child.Content(src))
	}
	return value.Type(), children, true
}

// Identifier matches a bare identifier such as weight_for_transfer.
func (g Grammar) Identifier(raw string) (string, bool) {
	kind, _, ok := g.expr(raw)
	if !ok || kind != "identifier" {
		return "", false
	}
	return strings.TrimSpace(raw), true
}

// Tuple matches a tuple expression. "(a)" is a parenthesised expression, not
// a tuple; "(a,)" is a one element tuple.
func (g Grammar) Tuple(raw string) ([]string, bool) {
	kind, elems, ok := g.expr(raw)
	if !ok || kind != "tuple_expression" {
		return nil, false
	}
	return elems, true
}

// Expression matches any single Rust expression.
func (g Grammar) Expression(raw string) (string, bool) {
	if _, _, ok := g.expr(raw); !ok {
		return "", false
	}
	return strings.TrimSpace(raw), true
}

func isComment(n *sitter.Node) bool {
	switch n.Type() {
	case "line_comment", "block_comment":
		return true
	}
	return false
}
