package derive

import (
	"go.uber.org/multierr"

	"weightgen/internal/logging"
)

// Pipeline couples a Classifier and a Synthesizer for one host.
type Pipeline struct {
	classifier  *Classifier
	synthesizer *Synthesizer
}

// NewPipeline returns a pipeline over the given stages.
func NewPipeline(c *Classifier, s *Synthesizer) *Pipeline {
	return &Pipeline{classifier: c, synthesizer: s}
}

// Classifier exposes the classification stage.
func (p *Pipeline) Classifier() *Classifier { return p.classifier }

// Synthesizer exposes the synthesis stage.
func (p *Pipeline) Synthesizer() *Synthesizer { return p.synthesizer }

// Transform classifies raw and synthesizes the weighted version of fn.
func (p *Pipeline) Transform(fn SourceFunc, raw string) (GeneratedFunc, error) {
	return p.TransformAs(fn, raw, ShapeNone)
}

// TransformAs is Transform with a forced annotation shape.
func (p *Pipeline) TransformAs(fn SourceFunc, raw string, shape Shape) (GeneratedFunc, error) {
	if fn.Name == "" || fn.Body == "" {
		return GeneratedFunc{}, &TransformError{Func: fn.Name, Annotation: raw, Pos: fn.Pos, Err: ErrUnparsableFunction}
	}
	a, err := p.classifier.ClassifyAs(raw, shape)
	if err != nil {
		logging.SynthWarn("%s: %v", fn.Name, err)
		return GeneratedFunc{}, &TransformError{Func: fn.Name, Annotation: raw, Pos: fn.Pos, Err: err}
	}
	gen := p.synthesizer.Synthesize(fn, a)
	logging.SynthDebug("%s -> %s (%s)", fn.Name, gen.Name, gen.Body.Rule)
	return gen, nil
}

// TransformAll transforms every site in order. All failures are reported,
// combined with multierr; on failure no functions are returned.
func (p *Pipeline) TransformAll(sites []Site) ([]GeneratedFunc, error) {
	var (
		out  []GeneratedFunc
		errs error
	)
	for _, site := range sites {
		gen, err := p.TransformAs(site.Func, site.Annotation, site.Shape)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, gen)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}
