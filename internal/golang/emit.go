package golang

import (
	"bytes"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/tools/go/ast/astutil"

	"weightgen/internal/derive"
	"weightgen/internal/logging"
)

// outcomeVar holds the error of the evaluated body in branch rules. It lives
// in the if statement's scope only.
const outcomeVar = "werr"

// Namer keeps Go visibility intact: the first letter of the prefix is upper
// cased for exported functions and lower cased otherwise.
func Namer(prefix string, fn derive.SourceFunc) string {
	r, size := utf8.DecodeRuneInString(prefix)
	if r == utf8.RuneError {
		return prefix + fn.Name
	}
	if fn.Visibility.Public {
		r = unicode.ToUpper(r)
	} else {
		r = unicode.ToLower(r)
	}
	return string(r) + prefix[size:] + fn.Name
}

// RenderFunc writes a single generated function as unformatted Go source.
func RenderFunc(b *strings.Builder, g derive.GeneratedFunc) error {
	b.WriteString("func ")
	if g.Receiver != "" {
		b.WriteString(g.Receiver)
		b.WriteString(" ")
	}
	b.WriteString(g.Name)
	b.WriteString(g.Generics)
	b.WriteString("(")
	b.WriteString(paramList(g.Params))
	b.WriteString(") ")
	b.WriteString(g.WeightType)
	b.WriteString(" {\n")

	body := g.Body
	closure := "func()" + resultList(body.OriginalResults) + " " + body.Original + "()"

	switch body.Rule {
	case derive.RuleDiscardThenExpr:
		writeDiscard(b, closure, len(body.OriginalResults))
		fmt.Fprintf(b, "\treturn %s\n", body.Expr)

	case derive.RuleDiscardThenDelegate:
		writeDiscard(b, closure, len(body.OriginalResults))
		args := strings.Join(body.Args, ", ")
		if body.Spread {
			args += "..."
		}
		fmt.Fprintf(b, "\treturn %s(%s)\n", body.Delegate, args)

	case derive.RuleBranchOnOutcome:
		n := len(body.OriginalResults)
		if n == 0 || strings.TrimSpace(body.OriginalResults[n-1].Type) != "error" {
			return &derive.TransformError{
				Func: g.Source,
				Err:  fmt.Errorf("%w: last result must be error", derive.ErrUnsupportedOutcome),
			}
		}
		lhs := strings.Repeat("_, ", n-1) + outcomeVar
		fmt.Fprintf(b, "\tif %s := %s; %s == nil {\n", lhs, closure, outcomeVar)
		fmt.Fprintf(b, "\t\treturn %s\n\t}\n", body.Success)
		fmt.Fprintf(b, "\treturn %s\n", body.Failure)

	default:
		return fmt.Errorf("unknown rule %d", body.Rule)
	}
	b.WriteString("}\n")
	return nil
}

// writeDiscard evaluates the original body and throws its results away.
func writeDiscard(b *strings.Builder, closure string, results int) {
	if results == 0 {
		fmt.Fprintf(b, "\t%s\n", closure)
		return
	}
	fmt.Fprintf(b, "\t%s_ = %s\n", strings.Repeat("_, ", results-1), closure)
}

func paramList(params []derive.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		typ := p.Type
		if p.Variadic {
			typ = "..." + typ
		}
		if p.Pattern == "" {
			parts = append(parts, typ)
		} else {
			parts = append(parts, p.Pattern+" "+typ)
		}
	}
	return strings.Join(parts, ", ")
}

func resultList(results []derive.Param) string {
	switch {
	case len(results) == 0:
		return ""
	case len(results) == 1 && results[0].Pattern == "":
		return " " + results[0].Type
	default:
		return " (" + paramList(results) + ")"
	}
}

// GeneratedHeader is the first line of every generated Go file.
func GeneratedHeader(source string) string {
	return fmt.Sprintf("// Code generated by weightgen from %s. DO NOT EDIT.\n", source)
}

// Render builds the generated file for f. It returns nil when there is
// nothing to generate. Imports of the source file are carried over and pruned
// to the ones the generated code still uses.
func Render(f *File, funcs []derive.GeneratedFunc) ([]byte, error) {
	if len(funcs) == 0 {
		return nil, nil
	}

	var decls strings.Builder
	for i, g := range funcs {
		if i > 0 {
			decls.WriteString("\n")
		}
		if err := RenderFunc(&decls, g); err != nil {
			return nil, err
		}
	}

	imports := sourceImports(f)
	specs := make([]string, len(imports))
	for i, si := range imports {
		specs[i] = si.spec
	}
	draft := assemble(f, specs, decls.String())

	// Parsed with object resolution, the draft's unresolved selector bases
	// are exactly the packages and source file declarations it refers to.
	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, "", draft, parser.ParseComments)
	if err != nil {
		logging.EmitError("go: generated code for %s does not parse: %v", f.Path, err)
		return nil, fmt.Errorf("generated code for %s does not parse: %w", f.Path, err)
	}
	for _, si := range unusedImports(f, imports, parsed) {
		astutil.DeleteNamedImport(fset, parsed, si.local, si.path)
	}

	var out bytes.Buffer
	if err := format.Node(&out, fset, parsed); err != nil {
		return nil, fmt.Errorf("format generated code for %s: %w", f.Path, err)
	}
	return out.Bytes(), nil
}

func assemble(f *File, imports []string, decls string) []byte {
	var b bytes.Buffer
	b.WriteString(GeneratedHeader(filepath.Base(f.Path)))
	b.WriteString("\n")
	if f.BuildConstraint != "" {
		b.WriteString(f.BuildConstraint)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "package %s\n\n", f.Package)
	if len(imports) > 0 {
		b.WriteString("import (\n")
		for _, spec := range imports {
			fmt.Fprintf(&b, "\t%s\n", spec)
		}
		b.WriteString(")\n\n")
	}
	b.WriteString(decls)
	return b.Bytes()
}
