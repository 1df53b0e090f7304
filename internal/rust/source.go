package rust

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"weightgen/internal/derive"
	"weightgen/internal/logging"
)

// attributeSet maps attribute names to the shape they force. For
// "derive_weight" that is derive_weight, derive_weight_expr,
// derive_weight_fn, derive_weight_result and the older "weight", which always
// took an expression.
type attributeSet map[string]derive.Shape

func newAttributeSet(name string) attributeSet {
	return attributeSet{
		name:             derive.ShapeNone,
		name + "_expr":   derive.ShapeConstant,
		name + "_fn":     derive.ShapeDelegate,
		name + "_result": derive.ShapeResultBranch,
		"weight":         derive.ShapeConstant,
	}
}

// attribute is a weight attribute found in the tree.
type attribute struct {
	shape      derive.Shape
	annotation string
	start      uint32
	pos        string
}

// File is a parsed Rust source file plus its annotated functions.
type File struct {
	Path  string
	Src   []byte
	Sites []derive.Site
}

// ParseFile finds every top-level function carrying a weight attribute. A
// weight attribute anywhere else (on a struct, inside an impl block) is an
// ErrUnparsableFunction.
func ParseFile(path string, src []byte, attributeName string) (*File, error) {
	start := time.Now()
	tree, err := newParser().ParseCtx(context.Background(), nil, src)
	if err != nil {
		logging.EmitError("rust: parse failed: %s - %v", path, err)
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("parse %s: %w: syntax error", path, derive.ErrUnparsableFunction)
	}

	attrs := newAttributeSet(attributeName)
	out := &File{Path: path, Src: src}
	accepted := make(map[uint32]bool)

	var pending []attribute
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "attribute_item":
			if a, ok := attrs.match(path, child, src); ok {
				pending = append(pending, a)
			}
			continue
		case "line_comment", "block_comment":
			continue
		}

		if len(pending) == 0 {
			continue
		}
		if child.Type() != "function_item" {
			// Left unaccepted; reported below.
			pending = nil
			continue
		}
		fn := sourceFunc(path, child, src)
		if len(pending) > 1 {
			return nil, &derive.TransformError{
				Func: fn.Name, Pos: fn.Pos,
				Err: fmt.Errorf("%w: %d weight attributes on one function", derive.ErrUnparsableAnnotation, len(pending)),
			}
		}
		a := pending[0]
		accepted[a.start] = true
		out.Sites = append(out.Sites, derive.Site{Func: fn, Annotation: a.annotation, Shape: a.shape})
		pending = nil
	}

	if stray := attrs.collect(path, root, src, accepted); stray != nil {
		return nil, &derive.TransformError{
			Func:       "<non-function>",
			Annotation: stray.annotation,
			Pos:        stray.pos,
			Err:        fmt.Errorf("%w: weight attributes apply to top-level functions only", derive.ErrUnparsableFunction),
		}
	}

	logging.EmitDebug("rust: %s has %d annotated functions (%v)", filepath.Base(path), len(out.Sites), time.Since(start))
	return out, nil
}

// match reads a weight attribute. Paths such as weightgen::derive_weight are
// matched on their last segment.
func (s attributeSet) match(path string, item *sitter.Node, src []byte) (attribute, bool) {
	if item.NamedChildCount() == 0 {
		return attribute{}, false
	}
	text := strings.TrimSpace(item.NamedChild(0).Content(src))
	name, rest := text, ""
	if i := strings.IndexAny(text, "(="); i >= 0 {
		name, rest = strings.TrimSpace(text[:i]), strings.TrimSpace(text[i:])
	}
	if j := strings.LastIndex(name, "::"); j >= 0 {
		name = name[j+2:]
	}
	shape, ok := s[name]
	if !ok {
		return attribute{}, false
	}
	annotation := rest
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		annotation = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	return attribute{
		shape:      shape,
		annotation: annotation,
		start:      item.StartByte(),
		pos:        position(path, item),
	}, true
}

// collect walks the whole tree and returns the first weight attribute that
// was not accepted on a top-level function.
func (s attributeSet) collect(path string, n *sitter.Node, src []byte, accepted map[uint32]bool) *attribute {
	if n.Type() == "attribute_item" {
		if a, ok := s.match(path, n, src); ok && !accepted[a.start] {
			return &a
		}
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if a := s.collect(path, n.NamedChild(i), src, accepted); a != nil {
			return a
		}
	}
	return nil
}

// ParseFunc parses a single function item, e.g. from the command line.
func ParseFunc(decl string) (derive.SourceFunc, error) {
	src := []byte(decl)
	tree, err := newParser().ParseCtx(context.Background(), nil, src)
	if err != nil {
		return derive.SourceFunc{}, fmt.Errorf("%w: %v", derive.ErrUnparsableFunction, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var fn *sitter.Node
	items := 0
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "line_comment", "block_comment", "attribute_item":
			continue
		case "function_item":
			fn = child
		}
		items++
	}
	if root.HasError() || items != 1 || fn == nil {
		return derive.SourceFunc{}, fmt.Errorf("%w: expected one function item", derive.ErrUnparsableFunction)
	}
	return sourceFunc("<input>", fn, src), nil
}

func sourceFunc(path string, n *sitter.Node, src []byte) derive.SourceFunc {
	text := func(n *sitter.Node) string {
		if n == nil {
			return ""
		}
		return n.Content(src)
	}

	fn := derive.SourceFunc{
		Name:     text(n.ChildByFieldName("name")),
		Generics: text(n.ChildByFieldName("type_parameters")),
		Body:     text(n.ChildByFieldName("body")),
		Pos:      position(path, n),
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "visibility_modifier":
			mod := text(child)
			fn.Visibility = derive.Visibility{Public: strings.HasPrefix(mod, "pub"), Modifier: mod}
		case "function_modifiers":
			fn.Qualifiers = text(child)
		case "where_clause":
			fn.Constraints = text(child)
		}
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		fn.Results = []derive.Param{{Type: text(ret)}}
	}

	params := n.ChildByFieldName("parameters")
	if params == nil {
		return fn
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "parameter":
			pattern := p.ChildByFieldName("pattern")
			param := derive.Param{Type: text(p.ChildByFieldName("type"))}
			if pattern != nil {
				// From the start of the parameter so "mut" is kept.
				param.Pattern = string(src[p.StartByte():pattern.EndByte()])
				if pattern.Type() == "identifier" {
					param.Ident = text(pattern)
				}
			}
			fn.Params = append(fn.Params, param)
		case "self_parameter", "variadic_parameter":
			fn.Params = append(fn.Params, derive.Param{Pattern: text(p)})
		}
	}
	return fn
}

func position(path string, n *sitter.Node) string {
	p := n.StartPoint()
	return fmt.Sprintf("%s:%d:%d", path, p.Row+1, p.Column+1)
}
