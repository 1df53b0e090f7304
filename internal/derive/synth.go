package derive

// DefaultPrefix is prepended to the source name to form the derived name.
const DefaultPrefix = "weighted_"

// DefaultWeightType is the return type of generated functions.
const DefaultWeightType = "Weight"

// Namer derives the generated function name. Hosts whose visibility depends on
// the spelling of a name (Go) adapt the prefix here.
type Namer func(prefix string, fn SourceFunc) string

// ConcatNamer returns prefix + fn.Name.
func ConcatNamer(prefix string, fn SourceFunc) string {
	return prefix + fn.Name
}

// Synthesizer builds GeneratedFunc records. It holds no per-call state and is
// safe for concurrent use.
type Synthesizer struct {
	prefix     string
	weightType string
	namer      Namer
}

// NewSynthesizer returns a Synthesizer. Empty arguments take the defaults.
func NewSynthesizer(prefix, weightType string, namer Namer) *Synthesizer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if weightType == "" {
		weightType = DefaultWeightType
	}
	if namer == nil {
		namer = ConcatNamer
	}
	return &Synthesizer{prefix: prefix, weightType: weightType, namer: namer}
}

// WeightType returns the configured weight type name.
func (s *Synthesizer) WeightType() string { return s.weightType }

// Synthesize emits the generated function for a classified annotation. The
// original body is always evaluated before the weight, whatever the rule.
func (s *Synthesizer) Synthesize(fn SourceFunc, a Annotation) GeneratedFunc {
	out := GeneratedFunc{
		Name:        s.namer(s.prefix, fn),
		Source:      fn.Name,
		Visibility:  fn.Visibility,
		Receiver:    fn.Receiver,
		Generics:    fn.Generics,
		Qualifiers:  fn.Qualifiers,
		Constraints: fn.Constraints,
		Params:      append([]Param(nil), fn.Params...),
		WeightType:  s.weightType,
	}
	body := Body{
		Original:        fn.Body,
		OriginalResults: append([]Param(nil), fn.Results...),
	}

	switch a.Shape {
	case ShapeDelegate:
		body.Rule = RuleDiscardThenDelegate
		body.Delegate = a.Delegate
		body.Args, body.Spread = ExtractArgs(fn.Params)
	case ShapeResultBranch:
		body.Rule = RuleBranchOnOutcome
		body.Success = a.Success
		body.Failure = a.Failure
	default:
		body.Rule = RuleDiscardThenExpr
		body.Expr = a.Expr
	}
	out.Body = body
	return out
}
