package derive

import (
	"fmt"
	"strings"
)

// Shape is the grammatical form of an annotation.
type Shape int

const (
	// ShapeNone is the zero value; as a forced shape it means "classify".
	ShapeNone Shape = iota
	ShapeDelegate
	ShapeResultBranch
	ShapeConstant
)

func (s Shape) String() string {
	switch s {
	case ShapeDelegate:
		return "delegate"
	case ShapeResultBranch:
		return "result"
	case ShapeConstant:
		return "expr"
	default:
		return "auto"
	}
}

// ParseShape maps the names accepted on command lines and in directives.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto", "derive":
		return ShapeNone, nil
	case "fn", "func", "delegate":
		return ShapeDelegate, nil
	case "result", "outcome", "tuple":
		return ShapeResultBranch, nil
	case "expr", "const", "constant":
		return ShapeConstant, nil
	}
	return ShapeNone, fmt.Errorf("unknown annotation shape %q", name)
}

// Annotation is a classified weight annotation. Exactly one group of fields is
// populated, selected by Shape.
type Annotation struct {
	Shape Shape
	Raw   string

	Expr string

	Delegate string

	Success string
	Failure string
}

func (a Annotation) String() string {
	switch a.Shape {
	case ShapeDelegate:
		return "delegate(" + a.Delegate + ")"
	case ShapeResultBranch:
		return "result(" + a.Success + ", " + a.Failure + ")"
	case ShapeConstant:
		return "expr(" + a.Expr + ")"
	default:
		return "unclassified(" + a.Raw + ")"
	}
}
