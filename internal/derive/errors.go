package derive

import (
	"errors"
	"fmt"
)

var (
	// ErrUnparsableFunction is returned when an annotation is attached to
	// something that is not a function declaration with a body.
	ErrUnparsableFunction = errors.New("annotated item is not a function declaration")

	// ErrUnparsableAnnotation is returned when the annotation text matches
	// none of the accepted shapes.
	ErrUnparsableAnnotation = errors.New("cannot parse the weight annotation")

	// ErrMalformedTuple is returned when a tuple annotation does not hold
	// exactly two elements (strict mode) or fewer than two (lenient mode).
	ErrMalformedTuple = errors.New("outcome tuple must hold exactly two weights")

	// ErrUnsupportedOutcome is returned by emitters when a branch annotation is
	// applied to a function whose result cannot be classified as success or
	// failure in the host language.
	ErrUnsupportedOutcome = errors.New("function result is not an outcome type")

	// ErrArityMismatch is never returned by the pipeline. Static checkers use
	// it to report a delegate whose signature does not line up with the
	// extracted identifiers before the compiler does.
	ErrArityMismatch = errors.New("delegate signature does not match the function parameters")
)

// TransformError identifies the function/annotation pair that failed.
type TransformError struct {
	Func       string
	Annotation string
	Pos        string
	Err        error
}

func (e *TransformError) Error() string {
	where := e.Func
	if e.Pos != "" {
		where = e.Pos + ": " + e.Func
	}
	if e.Annotation == "" {
		return fmt.Sprintf("%s: %v", where, e.Err)
	}
	return fmt.Sprintf("%s: annotation %q: %v", where, e.Annotation, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// annotationError attaches the raw text to a classification failure.
type annotationError struct {
	raw string
	err error
}

func (e *annotationError) Error() string {
	return fmt.Sprintf("%v: %q", e.err, e.raw)
}

func (e *annotationError) Unwrap() error { return e.err }
