package rust

import (
	"bytes"
	"path/filepath"
	"strings"

	"weightgen/internal/derive"
)

// Options configures a Host.
type Options struct {
	Attribute     string // e.g. "derive_weight"
	Prefix        string
	WeightType    string
	Suffix        string
	LenientTuples bool
}

// Host generates weighted Rust functions one file at a time.
type Host struct {
	opts     Options
	pipeline *derive.Pipeline
}

// NewHost builds a Rust host. Empty options take the package defaults.
func NewHost(opts Options) *Host {
	if opts.Attribute == "" {
		opts.Attribute = "derive_weight"
	}
	if opts.Suffix == "" {
		opts.Suffix = "_weight"
	}
	classifier := derive.NewClassifier(Grammar{}, derive.WithLenientTuples(opts.LenientTuples))
	synth := derive.NewSynthesizer(opts.Prefix, opts.WeightType, derive.ConcatNamer)
	return &Host{opts: opts, pipeline: derive.NewPipeline(classifier, synth)}
}

func (h *Host) Language() string           { return "rust" }
func (h *Host) Extensions() []string       { return []string{".rs"} }
func (h *Host) Pipeline() *derive.Pipeline { return h.pipeline }
func (h *Host) Directive() string          { return h.opts.Attribute }

// OutputPath maps lib.rs to lib_weight.rs.
func (h *Host) OutputPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + h.opts.Suffix + ".rs"
}

// IsGenerated reports whether src starts with a generated-code header.
func (h *Host) IsGenerated(_ string, src []byte) bool {
	line, _, _ := bytes.Cut(src, []byte("\n"))
	line = bytes.TrimSpace(line)
	return bytes.HasPrefix(line, []byte("// Code generated ")) && bytes.HasSuffix(line, []byte("DO NOT EDIT."))
}

// Generate parses src, transforms every annotated function and renders the
// output. It returns a nil slice when src has no annotated functions.
func (h *Host) Generate(path string, src []byte) ([]byte, int, error) {
	f, err := ParseFile(path, src, h.opts.Attribute)
	if err != nil {
		return nil, 0, err
	}
	funcs, err := h.pipeline.TransformAll(f.Sites)
	if err != nil {
		return nil, 0, err
	}
	out, err := Render(filepath.Base(path), funcs)
	if err != nil {
		return nil, 0, err
	}
	return out, len(funcs), nil
}

// Sites lists the annotated functions in src without transforming them.
func (h *Host) Sites(path string, src []byte) ([]derive.Site, error) {
	f, err := ParseFile(path, src, h.opts.Attribute)
	if err != nil {
		return nil, err
	}
	return f.Sites, nil
}
