package golang

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"path/filepath"
	"strings"
	"time"

	"weightgen/internal/derive"
	"weightgen/internal/logging"
)

// Directive is a parsed "//ns:verb annotation" comment.
type Directive struct {
	Shape      derive.Shape
	Annotation string
	Pos        token.Pos
}

// DirectiveSet recognises the configured directive and its shape-forcing
// siblings. For "weight:derive" those are weight:expr, weight:fn and
// weight:result.
type DirectiveSet struct {
	verbs map[string]derive.Shape
}

// NewDirectiveSet returns the directives derived from name.
func NewDirectiveSet(name string) DirectiveSet {
	ns, _, found := strings.Cut(name, ":")
	verbs := map[string]derive.Shape{name: derive.ShapeNone}
	if found {
		verbs[ns+":expr"] = derive.ShapeConstant
		verbs[ns+":fn"] = derive.ShapeDelegate
		verbs[ns+":result"] = derive.ShapeResultBranch
	} else {
		verbs[name+"_expr"] = derive.ShapeConstant
		verbs[name+"_fn"] = derive.ShapeDelegate
		verbs[name+"_result"] = derive.ShapeResultBranch
	}
	return DirectiveSet{verbs: verbs}
}

// Match parses one comment. Directives follow the Go convention of no space
// after the slashes.
func (d DirectiveSet) Match(c *ast.Comment) (Directive, bool) {
	text, ok := strings.CutPrefix(c.Text, "//")
	if !ok {
		return Directive{}, false
	}
	verb, rest, _ := strings.Cut(text, " ")
	shape, ok := d.verbs[verb]
	if !ok {
		return Directive{}, false
	}
	return Directive{Shape: shape, Annotation: stripComment(rest), Pos: c.Pos()}, true
}

// stripComment cuts a trailing comment such as "// per call" off an
// annotation. Slashes inside literals are not comments.
func stripComment(text string) string {
	src := []byte(text)
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	var s scanner.Scanner
	s.Init(file, src, nil, scanner.ScanComments)
	for {
		pos, tok, _ := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.COMMENT {
			return strings.TrimSpace(text[:file.Offset(pos)])
		}
	}
	return strings.TrimSpace(text)
}

// FuncDirectives returns the directives in the doc comment of fd.
func (d DirectiveSet) FuncDirectives(fd *ast.FuncDecl) []Directive {
	if fd.Doc == nil {
		return nil
	}
	var found []Directive
	for _, c := range fd.Doc.List {
		if dir, ok := d.Match(c); ok {
			found = append(found, dir)
		}
	}
	return found
}

// File is a parsed Go source file plus the annotated functions in it.
type File struct {
	Path    string
	Package string
	Fset    *token.FileSet
	AST     *ast.File
	Src     []byte
	Sites   []derive.Site
	// BuildConstraint is the file's //go:build line, if any. Generated code
	// carries it so both files are compiled under the same conditions.
	BuildConstraint string
}

// ParseFile parses src and collects every function carrying a weight
// directive. A directive that is not in the doc comment of a function with a
// body is an ErrUnparsableFunction.
func ParseFile(path string, src []byte, directiveName string) (*File, error) {
	start := time.Now()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	dirs := NewDirectiveSet(directiveName)
	out := &File{Path: path, Package: f.Name.Name, Fset: fset, AST: f, Src: src}

	for _, cg := range f.Comments {
		if cg.Pos() >= f.Package {
			break
		}
		for _, c := range cg.List {
			if strings.HasPrefix(c.Text, "//go:build ") {
				out.BuildConstraint = c.Text
			}
		}
	}

	owned := make(map[*ast.CommentGroup]bool)
	for _, decl := range f.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		found := dirs.FuncDirectives(fd)
		if len(found) == 0 {
			continue
		}
		owned[fd.Doc] = true

		fn := sourceFunc(fset, src, fd)
		if len(found) > 1 {
			return nil, &derive.TransformError{
				Func: fn.Name, Pos: fn.Pos,
				Err: fmt.Errorf("%w: %d weight directives on one function", derive.ErrUnparsableAnnotation, len(found)),
			}
		}
		if fd.Body == nil {
			return nil, &derive.TransformError{Func: fn.Name, Annotation: found[0].Annotation, Pos: fn.Pos, Err: derive.ErrUnparsableFunction}
		}
		out.Sites = append(out.Sites, derive.Site{Func: fn, Annotation: found[0].Annotation, Shape: found[0].Shape})
	}

	// Directives anywhere else are attached to something that is not a function.
	for _, cg := range f.Comments {
		if owned[cg] {
			continue
		}
		for _, c := range cg.List {
			if d, ok := dirs.Match(c); ok {
				return nil, &derive.TransformError{
					Func:       "<non-function>",
					Annotation: d.Annotation,
					Pos:        fset.Position(d.Pos).String(),
					Err:        derive.ErrUnparsableFunction,
				}
			}
		}
	}

	logging.EmitDebug("go: %s has %d annotated functions (%v)", filepath.Base(path), len(out.Sites), time.Since(start))
	return out, nil
}

// ParseFunc parses a single function declaration, e.g. from the command
// line. Anything other than exactly one function with a body is an
// ErrUnparsableFunction.
func ParseFunc(decl string) (derive.SourceFunc, error) {
	const header = "package p\n\n"
	src := []byte(header + decl)
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "func.go", src, 0)
	if err != nil {
		return derive.SourceFunc{}, fmt.Errorf("%w: %v", derive.ErrUnparsableFunction, err)
	}
	if len(f.Decls) != 1 {
		return derive.SourceFunc{}, fmt.Errorf("%w: expected one declaration, found %d", derive.ErrUnparsableFunction, len(f.Decls))
	}
	fd, ok := f.Decls[0].(*ast.FuncDecl)
	if !ok || fd.Body == nil {
		return derive.SourceFunc{}, derive.ErrUnparsableFunction
	}
	return sourceFunc(fset, src, fd), nil
}

func sourceFunc(fset *token.FileSet, src []byte, fd *ast.FuncDecl) derive.SourceFunc {
	text := func(n ast.Node) string {
		return string(src[fset.Position(n.Pos()).Offset:fset.Position(n.End()).Offset])
	}

	fn := derive.SourceFunc{
		Name:       fd.Name.Name,
		Visibility: derive.Visibility{Public: ast.IsExported(fd.Name.Name)},
		Params:     fields(fd.Type.Params, text),
		Results:    fields(fd.Type.Results, text),
		Pos:        fset.Position(fd.Pos()).String(),
	}
	if fd.Recv != nil {
		fn.Receiver = text(fd.Recv)
	}
	if fd.Type.TypeParams != nil {
		fn.Generics = text(fd.Type.TypeParams)
	}
	if fd.Body != nil {
		fn.Body = text(fd.Body)
	}
	return fn
}

func fields(list *ast.FieldList, text func(ast.Node) string) []derive.Param {
	if list == nil {
		return nil
	}
	var params []derive.Param
	for _, field := range list.List {
		typ := field.Type
		variadic := false
		if ell, ok := typ.(*ast.Ellipsis); ok {
			typ = ell.Elt
			variadic = true
		}
		typeText := text(typ)
		if len(field.Names) == 0 {
			params = append(params, derive.Param{Type: typeText, Variadic: variadic})
			continue
		}
		for _, name := range field.Names {
			p := derive.Param{Pattern: name.Name, Type: typeText, Variadic: variadic}
			if name.Name != "_" {
				p.Ident = name.Name
			}
			params = append(params, p)
		}
	}
	return params
}
