package derive

import (
	"strings"

	"weightgen/internal/logging"
)

// Grammar recognises annotation text for one host language. Each method
// reports whether raw has the shape and returns the normalised pieces.
type Grammar interface {
	// Identifier matches a single bare identifier.
	Identifier(raw string) (string, bool)
	// Tuple matches a parenthesised, comma separated list of expressions and
	// returns the element texts. A parenthesised single expression without a
	// separating comma is not a tuple.
	Tuple(raw string) ([]string, bool)
	// Expression matches any expression.
	Expression(raw string) (string, bool)
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithLenientTuples accepts tuples longer than two elements and ignores the
// extras instead of failing with ErrMalformedTuple.
func WithLenientTuples(lenient bool) ClassifierOption {
	return func(c *Classifier) { c.lenient = lenient }
}

type matcher struct {
	shape Shape
	match func(raw string) (Annotation, bool, error)
}

// Classifier maps raw annotation text to an Annotation. The matchers run in a
// fixed order and the first one that recognises the text wins: identifier,
// then tuple, then expression. A bare identifier is also a valid expression,
// so the identifier matcher has to run first.
type Classifier struct {
	grammar  Grammar
	lenient  bool
	matchers []matcher
}

// NewClassifier builds a Classifier for the given host grammar.
func NewClassifier(g Grammar, opts ...ClassifierOption) *Classifier {
	c := &Classifier{grammar: g}
	for _, opt := range opts {
		opt(c)
	}
	c.matchers = []matcher{
		{ShapeDelegate, c.matchIdentifier},
		{ShapeResultBranch, c.matchTuple},
		{ShapeConstant, c.matchExpression},
	}
	return c
}

// Classify returns the first shape that matches raw.
func (c *Classifier) Classify(raw string) (Annotation, error) {
	text := strings.TrimSpace(raw)
	for _, m := range c.matchers {
		a, ok, err := m.match(text)
		if err != nil {
			return Annotation{}, err
		}
		if ok {
			logging.ClassifyDebug("annotation %q classified as %s", text, m.shape)
			return a, nil
		}
	}
	return Annotation{}, &annotationError{raw: raw, err: ErrUnparsableAnnotation}
}

// ClassifyAs runs only the matcher for shape. ShapeNone falls back to Classify.
func (c *Classifier) ClassifyAs(raw string, shape Shape) (Annotation, error) {
	if shape == ShapeNone {
		return c.Classify(raw)
	}
	text := strings.TrimSpace(raw)
	for _, m := range c.matchers {
		if m.shape != shape {
			continue
		}
		a, ok, err := m.match(text)
		if err != nil {
			return Annotation{}, err
		}
		if ok {
			logging.ClassifyDebug("annotation %q forced to %s", text, shape)
			return a, nil
		}
	}
	return Annotation{}, &annotationError{raw: raw, err: ErrUnparsableAnnotation}
}

func (c *Classifier) matchIdentifier(raw string) (Annotation, bool, error) {
	id, ok := c.grammar.Identifier(raw)
	if !ok {
		return Annotation{}, false, nil
	}
	return Annotation{Shape: ShapeDelegate, Raw: raw, Delegate: id}, true, nil
}

func (c *Classifier) matchTuple(raw string) (Annotation, bool, error) {
	elems, ok := c.grammar.Tuple(raw)
	if !ok {
		return Annotation{}, false, nil
	}
	switch {
	case len(elems) == 2:
	case len(elems) > 2 && c.lenient:
		logging.ClassifyWarn("tuple annotation %q has %d elements, ignoring all but the first two", raw, len(elems))
	default:
		return Annotation{}, false, &annotationError{raw: raw, err: ErrMalformedTuple}
	}
	return Annotation{
		Shape:   ShapeResultBranch,
		Raw:     raw,
		Success: elems[0],
		Failure: elems[1],
	}, true, nil
}

func (c *Classifier) matchExpression(raw string) (Annotation, bool, error) {
	expr, ok := c.grammar.Expression(raw)
	if !ok {
		return Annotation{}, false, nil
	}
	return Annotation{Shape: ShapeConstant, Raw: raw, Expr: expr}, true, nil
}
