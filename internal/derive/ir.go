// Package derive turns an annotated function into its weighted counterpart.
//
// The package is host-neutral. A host language supplies a Grammar, which decides
// how annotation text is recognised, and renders the GeneratedFunc records this
// package produces. Nothing here parses or prints concrete syntax beyond asking
// the Grammar whether a piece of text has a given shape.
//
// The pipeline is:
//
//	Classifier.Classify(raw)      -> Annotation
//	ExtractIdentifiers(params)    -> []string
//	Synthesizer.Synthesize(fn, a) -> GeneratedFunc
//
// Transform runs all three and wraps failures in a *TransformError.
package derive

// Visibility records how a function is exposed. Public is the normalised view,
// Modifier keeps the verbatim host text (Rust "pub(crate)", empty for Go).
type Visibility struct {
	Public   bool
	Modifier string
}

// Param is a single declared parameter or result.
type Param struct {
	// Pattern is the binding text as written. Empty for unnamed Go params.
	Pattern string
	// Type is the declared type text. Empty for Rust self receivers.
	Type string
	// Ident is set only when Pattern is a simple, referenceable name.
	Ident string
	// Variadic marks a Go "...T" parameter. Type excludes the ellipsis.
	Variadic bool
}

// SourceFunc is the original declaration. It is never mutated.
type SourceFunc struct {
	Name       string
	Visibility Visibility
	// Receiver is the verbatim Go receiver list including parentheses, if any.
	Receiver string
	// Generics is the verbatim type parameter list including brackets, if any.
	Generics string
	// Qualifiers are leading function modifiers such as Rust "const" or
	// "async", verbatim.
	Qualifiers string
	// Constraints is a trailing Rust where clause, verbatim.
	Constraints string
	Params      []Param
	Results     []Param
	// Body is the verbatim block, braces included.
	Body string
	// Pos is a host-formatted source position used in diagnostics.
	Pos string
}

// Rule selects how a generated body is built.
type Rule int

const (
	RuleDiscardThenExpr Rule = iota
	RuleDiscardThenDelegate
	RuleBranchOnOutcome
)

func (r Rule) String() string {
	switch r {
	case RuleDiscardThenExpr:
		return "discard-then-expr"
	case RuleDiscardThenDelegate:
		return "discard-then-delegate"
	case RuleBranchOnOutcome:
		return "branch-on-outcome"
	default:
		return "unknown"
	}
}

// Body is the language-neutral description of a generated function body.
type Body struct {
	Rule Rule
	// Original is the source body, evaluated first in every rule.
	Original string
	// OriginalResults are the source result params; emitters need them to
	// evaluate Original as an expression of the right type.
	OriginalResults []Param

	Expr string

	Delegate string
	Args     []string
	// Spread is set when the final argument is a variadic parameter.
	Spread bool

	Success string
	Failure string
}

// GeneratedFunc is the synthesis output handed to a host emitter.
type GeneratedFunc struct {
	Name        string
	Source      string
	Visibility  Visibility
	Receiver    string
	Generics    string
	Qualifiers  string
	Constraints string
	Params      []Param
	WeightType  string
	Body        Body
}

// Site is one annotated function found by a host parser.
type Site struct {
	Func       SourceFunc
	Annotation string
	// Shape is ShapeNone unless the directive forces a grammar.
	Shape Shape
}
