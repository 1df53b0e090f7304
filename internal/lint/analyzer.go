// Package lint provides weightcheck, an analyzer that reports problems with
// weight directives where they are written instead of at generation time.
//
// Besides the directive checks the generator itself performs, weightcheck uses
// type information to catch a delegate whose parameters do not line up with
// the identifiers the generated call will pass.
package lint

import (
	"errors"
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"weightgen/internal/derive"
	"weightgen/internal/golang"
	"weightgen/internal/logging"
)

var (
	directiveFlag  string
	weightTypeFlag string
	lenientFlag    bool
)

// Analyzer reports malformed weight directives and mismatched delegates.
var Analyzer = &analysis.Analyzer{
	Name: "weightcheck",
	Doc:  "reports malformed weight directives and delegates whose signature does not match",
	Run:  run,
	Requires: []*analysis.Analyzer{
		inspect.Analyzer,
	},
}

func init() {
	Analyzer.Flags.StringVar(&directiveFlag, "directive", "weight:derive", "weight directive name")
	Analyzer.Flags.StringVar(&weightTypeFlag, "weight-type", derive.DefaultWeightType, "weight type delegates must return, when declared in the package")
	Analyzer.Flags.BoolVar(&lenientFlag, "lenient", false, "accept outcome tuples with more than two elements")
}

func run(pass *analysis.Pass) (interface{}, error) {
	dirs := golang.NewDirectiveSet(directiveFlag)
	classifier := derive.NewClassifier(golang.Grammar{}, derive.WithLenientTuples(lenientFlag))
	owned := make(map[*ast.CommentGroup]bool)

	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	nodeFilter := []ast.Node{(*ast.FuncDecl)(nil)}
	insp.Preorder(nodeFilter, func(n ast.Node) {
		fd := n.(*ast.FuncDecl)
		found := dirs.FuncDirectives(fd)
		if len(found) == 0 {
			return
		}
		owned[fd.Doc] = true
		if len(found) > 1 {
			pass.Reportf(fd.Name.Pos(), "%s has %d weight directives", fd.Name.Name, len(found))
			return
		}
		d := found[0]
		if fd.Body == nil {
			pass.Reportf(fd.Name.Pos(), "%v: %s has no body", derive.ErrUnparsableFunction, fd.Name.Name)
			return
		}
		a, err := classifier.ClassifyAs(d.Annotation, d.Shape)
		if err != nil {
			pass.Reportf(fd.Name.Pos(), "weight directive on %s: %v", fd.Name.Name, err)
			return
		}
		logging.LintDebug("%s: %s annotation", fd.Name.Name, a.Shape)

		switch a.Shape {
		case derive.ShapeDelegate:
			checkDelegate(pass, fd, a.Delegate)
		case derive.ShapeResultBranch:
			checkOutcome(pass, fd)
		}
	})

	for _, f := range pass.Files {
		if ast.IsGenerated(f) {
			continue
		}
		for _, cg := range f.Comments {
			if owned[cg] {
				continue
			}
			for _, c := range cg.List {
				if d, ok := dirs.Match(c); ok {
					pass.Reportf(d.Pos, "%v: weight directive must be in the doc comment of a function", derive.ErrUnparsableFunction)
				}
			}
		}
	}
	return nil, nil
}

// checkOutcome reports a branch annotation on a function without a trailing
// error result.
func checkOutcome(pass *analysis.Pass, fd *ast.FuncDecl) {
	pos := fd.Name.Pos()
	sig := signatureOf(pass, fd)
	if sig == nil {
		return
	}
	results := sig.Results()
	errType := types.Universe.Lookup("error").Type()
	if results.Len() == 0 || !types.Identical(results.At(results.Len()-1).Type(), errType) {
		pass.Reportf(pos, "%v: %s must return error last to use an outcome tuple", derive.ErrUnsupportedOutcome, fd.Name.Name)
	}
}

// checkDelegate compares the delegate's signature with the arguments the
// generated call passes: the simple parameter names of fd, in order.
func checkDelegate(pass *analysis.Pass, fd *ast.FuncDecl, name string) {
	pos := fd.Name.Pos()
	obj := pass.Pkg.Scope().Lookup(name)
	if obj == nil {
		pass.Reportf(pos, "%v: delegate %s is not declared in package %s", ErrDelegate, name, pass.Pkg.Name())
		return
	}
	fn, ok := obj.(*types.Func)
	if !ok {
		pass.Reportf(pos, "%v: delegate %s is a %s, not a function", ErrDelegate, name, kindOf(obj))
		return
	}
	want := fn.Type().(*types.Signature)
	if want.TypeParams().Len() > 0 {
		// Inference is left to the compiler.
		return
	}

	args := argTypes(pass, fd)
	params := want.Params()
	n := params.Len()
	spread := len(args) > 0 && args[len(args)-1].variadic
	switch {
	case spread && !want.Variadic():
		pass.Reportf(pos, "%v: %s spreads %s but %s is not variadic",
			derive.ErrArityMismatch, fd.Name.Name, args[len(args)-1].name, name)
		return
	case want.Variadic() && !spread && len(args) < n-1:
		pass.Reportf(pos, "%v: %s takes at least %d parameters but %s passes %d",
			derive.ErrArityMismatch, name, n-1, fd.Name.Name, len(args))
		return
	case (!want.Variadic() || spread) && len(args) != n:
		pass.Reportf(pos, "%v: %s takes %d parameters but %s passes %d",
			derive.ErrArityMismatch, name, n, fd.Name.Name, len(args))
		return
	}
	for i, a := range args {
		var p types.Type
		if want.Variadic() && i >= n-1 {
			p = params.At(n - 1).Type()
			if !spread {
				p = p.(*types.Slice).Elem()
			}
		} else {
			p = params.At(i).Type()
		}
		if a.typ != nil && !types.AssignableTo(a.typ, p) {
			pass.Reportf(pos, "%v: argument %s of type %s cannot be passed as %s to %s",
				derive.ErrArityMismatch, a.name, a.typ, p, name)
			return
		}
	}

	results := want.Results()
	if results.Len() != 1 {
		pass.Reportf(pos, "%v: delegate %s must return a single weight, returns %d values", ErrDelegate, name, results.Len())
		return
	}
	if wt, ok := pass.Pkg.Scope().Lookup(weightTypeFlag).(*types.TypeName); ok {
		if !types.Identical(results.At(0).Type(), wt.Type()) {
			pass.Reportf(pos, "%v: delegate %s returns %s, not %s", ErrDelegate, name, results.At(0).Type(), wt.Name())
		}
	}
}

// ErrDelegate marks a delegate that is missing or is not a weight function.
var ErrDelegate = errors.New("invalid weight delegate")

type arg struct {
	name     string
	typ      types.Type
	variadic bool
}

// argTypes returns the simple parameters of fd with their types. Variadic
// parameters are reported with their slice type, as the spread passes it.
func argTypes(pass *analysis.Pass, fd *ast.FuncDecl) []arg {
	var args []arg
	for _, field := range fd.Type.Params.List {
		_, variadic := field.Type.(*ast.Ellipsis)
		for _, n := range field.Names {
			if n.Name == "_" {
				continue
			}
			a := arg{name: n.Name, variadic: variadic}
			if obj := pass.TypesInfo.Defs[n]; obj != nil {
				a.typ = obj.Type()
			}
			args = append(args, a)
		}
	}
	return args
}

func signatureOf(pass *analysis.Pass, fd *ast.FuncDecl) *types.Signature {
	obj, ok := pass.TypesInfo.Defs[fd.Name].(*types.Func)
	if !ok {
		return nil
	}
	return obj.Type().(*types.Signature)
}

func kindOf(obj types.Object) string {
	switch obj.(type) {
	case *types.TypeName:
		return "type"
	case *types.Var:
		return "variable"
	case *types.Const:
		return "constant"
	default:
		return "declaration"
	}
}
