package golang

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"weightgen/internal/derive"
)

// generatedRE is the standard marker for machine-written Go files.
var generatedRE = regexp.MustCompile(`(?m)^// Code generated .* DO NOT EDIT\.$`)

// Options configures a Host.
type Options struct {
	Directive     string // e.g. "weight:derive"
	Prefix        string
	WeightType    string
	Suffix        string // output file stem suffix, e.g. "_weight"
	LenientTuples bool
}

// Host generates weighted Go functions one file at a time.
type Host struct {
	opts     Options
	pipeline *derive.Pipeline
}

// NewHost builds a Go host. Empty options take the package defaults.
func NewHost(opts Options) *Host {
	if opts.Directive == "" {
		opts.Directive = "weight:derive"
	}
	if opts.Suffix == "" {
		opts.Suffix = "_weight"
	}
	classifier := derive.NewClassifier(Grammar{}, derive.WithLenientTuples(opts.LenientTuples))
	synth := derive.NewSynthesizer(opts.Prefix, opts.WeightType, Namer)
	return &Host{opts: opts, pipeline: derive.NewPipeline(classifier, synth)}
}

func (h *Host) Language() string           { return "go" }
func (h *Host) Extensions() []string       { return []string{".go"} }
func (h *Host) Pipeline() *derive.Pipeline { return h.pipeline }
func (h *Host) Directive() string          { return h.opts.Directive }

// OutputPath maps foo.go to foo_weight.go and foo_test.go to
// foo_weight_test.go so test-only functions stay test-only.
func (h *Host) OutputPath(path string) string {
	dir, base := filepath.Split(path)
	if stem, ok := strings.CutSuffix(base, "_test.go"); ok {
		return filepath.Join(dir, stem+h.opts.Suffix+"_test.go")
	}
	stem := strings.TrimSuffix(base, ".go")
	return filepath.Join(dir, stem+h.opts.Suffix+".go")
}

// IsGenerated reports whether src was written by a code generator, ours or
// anyone else's. Such files are never used as input.
func (h *Host) IsGenerated(_ string, src []byte) bool {
	// Only the header region counts, not a string literal deep in the file.
	if bytes.HasPrefix(src, []byte("package ")) {
		return false
	}
	head := src
	if i := bytes.Index(src, []byte("\npackage ")); i >= 0 {
		head = src[:i]
	}
	return generatedRE.Match(head)
}

// Generate parses src, transforms every annotated function and renders the
// output file. It returns a nil slice when src has no annotated functions.
func (h *Host) Generate(path string, src []byte) ([]byte, int, error) {
	f, err := ParseFile(path, src, h.opts.Directive)
	if err != nil {
		return nil, 0, err
	}
	funcs, err := h.pipeline.TransformAll(f.Sites)
	if err != nil {
		return nil, 0, err
	}
	out, err := Render(f, funcs)
	if err != nil {
		return nil, 0, err
	}
	return out, len(funcs), nil
}

// Sites lists the annotated functions in src without transforming them.
func (h *Host) Sites(path string, src []byte) ([]derive.Site, error) {
	f, err := ParseFile(path, src, h.opts.Directive)
	if err != nil {
		return nil, err
	}
	return f.Sites, nil
}
