package golang

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weightgen/internal/derive"
)

func TestGrammarIdentifier(t *testing.T) {
	g := Grammar{}
	for _, raw := range []string{"calc", "_x", "weightOf2"} {
		_, ok := g.Identifier(raw)
		assert.True(t, ok, raw)
	}
	for _, raw := range []string{"func", "a.b", "f()", "1x", ""} {
		_, ok := g.Identifier(raw)
		assert.False(t, ok, raw)
	}
}

func TestGrammarTuple(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
		ok   bool
	}{
		{"(a, b)", []string{"a", "b"}, true},
		{"(a, b,)", []string{"a", "b"}, true},
		{"(Weight{RefTime: 1}, Weight{})", []string{"Weight{RefTime: 1}", "Weight{}"}, true},
		{"(f(a, b), c)", []string{"f(a, b)", "c"}, true},
		{"([]int{1, 2}, x[0])", []string{"[]int{1, 2}", "x[0]"}, true},
		{"(a, b, c)", []string{"a", "b", "c"}, true},
		{"(a)", nil, false},
		{"a, b", nil, false},
		{"(a, b).X", nil, false},
		{"(a, b)(c)", nil, false},
		{"(a,, b)", nil, false},
		{"(a, b", nil, false},
		{"(a, 1 +)", nil, false},
	}
	g := Grammar{}
	for _, tt := range tests {
		got, ok := g.Tuple(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestGrammarExpression(t *testing.T) {
	g := Grammar{}
	for _, raw := range []string{"Weight{}", "weight.FromParts(1, 2)", "base + 10", "x"} {
		_, ok := g.Expression(raw)
		assert.True(t, ok, raw)
	}
	for _, raw := range []string{"", "  ", "1 +", "func", "{"} {
		_, ok := g.Expression(raw)
		assert.False(t, ok, raw)
	}
}

func TestClassifyWithGoGrammar(t *testing.T) {
	c := derive.NewClassifier(Grammar{})

	a, err := c.Classify("calcWeight")
	require.NoError(t, err)
	assert.Equal(t, derive.ShapeDelegate, a.Shape)

	a, err = c.Classify("(Weight{}, Weight{RefTime: 9})")
	require.NoError(t, err)
	assert.Equal(t, derive.ShapeResultBranch, a.Shape)
	assert.Equal(t, "Weight{}", a.Success)
	assert.Equal(t, "Weight{RefTime: 9}", a.Failure)

	a, err = c.Classify("Weight{RefTime: 1}")
	require.NoError(t, err)
	assert.Equal(t, derive.ShapeConstant, a.Shape)

	_, err = c.Classify("(a, b, c)")
	assert.ErrorIs(t, err, derive.ErrMalformedTuple)

	_, err = c.Classify("1 +")
	assert.ErrorIs(t, err, derive.ErrUnparsableAnnotation)
}

const calcSrc = `//go:build !js

package calc

import (
	"errors"
	"fmt"
)

// DoSomething prints x.
//
//weight:derive Weight{RefTime: 1}
func DoSomething(x uint32) uint32 {
	fmt.Println(x)
	return x
}

//weight:derive calc
func sum(_ int, xs ...int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

//weight:result (Weight{}, Weight{RefTime: 9})
func (c *Counter) check(n int) (int, error) {
	if n > 0 {
		return n, errors.New("positive")
	}
	return n, nil
}

//weight:expr cost
func plain() {}

func untouched() {}
`

func TestParseFile(t *testing.T) {
	f, err := ParseFile("calc.go", []byte(calcSrc), "weight:derive")
	require.NoError(t, err)

	assert.Equal(t, "calc", f.Package)
	assert.Equal(t, "//go:build !js", f.BuildConstraint)
	require.Len(t, f.Sites, 4)

	do := f.Sites[0]
	assert.Equal(t, "DoSomething", do.Func.Name)
	assert.True(t, do.Func.Visibility.Public)
	assert.Equal(t, "Weight{RefTime: 1}", do.Annotation)
	assert.Equal(t, derive.ShapeNone, do.Shape)
	assert.Equal(t, []derive.Param{{Pattern: "x", Type: "uint32", Ident: "x"}}, do.Func.Params)
	assert.Equal(t, []derive.Param{{Type: "uint32"}}, do.Func.Results)
	assert.True(t, strings.HasPrefix(do.Func.Body, "{"))
	assert.Contains(t, do.Func.Pos, "calc.go:")

	sum := f.Sites[1]
	assert.False(t, sum.Func.Visibility.Public)
	assert.Equal(t, []derive.Param{
		{Pattern: "_", Type: "int"},
		{Pattern: "xs", Type: "int", Ident: "xs", Variadic: true},
	}, sum.Func.Params)

	check := f.Sites[2]
	assert.Equal(t, derive.ShapeResultBranch, check.Shape)
	assert.Equal(t, "(c *Counter)", check.Func.Receiver)

	plain := f.Sites[3]
	assert.Equal(t, derive.ShapeConstant, plain.Shape)
	assert.Empty(t, plain.Func.Results)
}

func TestParseFileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{
			name: "two directives",
			src:  "package p\n\n//weight:derive a\n//weight:derive b\nfunc f() {}\n",
			want: derive.ErrUnparsableAnnotation,
		},
		{
			name: "no body",
			src:  "package p\n\n//weight:derive a\nfunc f(x int) int\n",
			want: derive.ErrUnparsableFunction,
		},
		{
			name: "on a type",
			src:  "package p\n\n//weight:derive a\ntype T struct{}\n",
			want: derive.ErrUnparsableFunction,
		},
		{
			name: "inside a body",
			src:  "package p\n\nfunc f() {\n\t//weight:derive a\n\t_ = 1\n}\n",
			want: derive.ErrUnparsableFunction,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile("p.go", []byte(tt.src), "weight:derive")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var te *derive.TransformError
			assert.True(t, errors.As(err, &te))
		})
	}

	_, err := ParseFile("p.go", []byte("package p\nfunc {"), "weight:derive")
	assert.Error(t, err)
}

func TestParseFileCustomDirective(t *testing.T) {
	src := "package p\n\n//cost:fn calc\nfunc f() {}\n\n//weight:derive ignored\nfunc g() {}\n"
	f, err := ParseFile("p.go", []byte(src), "cost:derive")
	require.NoError(t, err)
	require.Len(t, f.Sites, 1)
	assert.Equal(t, "f", f.Sites[0].Func.Name)
	assert.Equal(t, derive.ShapeDelegate, f.Sites[0].Shape)
}

func TestDirectiveTrailingComment(t *testing.T) {
	src := "package p\n\n//weight:derive costOf // per call\nfunc f() {}\n\n" +
		"//weight:expr Weight{Name: \"a//b\"} // named\nfunc g() {}\n"
	f, err := ParseFile("p.go", []byte(src), "weight:derive")
	require.NoError(t, err)
	require.Len(t, f.Sites, 2)
	assert.Equal(t, "costOf", f.Sites[0].Annotation)
	assert.Equal(t, `Weight{Name: "a//b"}`, f.Sites[1].Annotation)

	a, err := derive.NewClassifier(Grammar{}).Classify(f.Sites[0].Annotation)
	require.NoError(t, err)
	assert.Equal(t, derive.ShapeDelegate, a.Shape)
}

func TestParseFunc(t *testing.T) {
	fn, err := ParseFunc("func Add(a, b int) int { return a + b }")
	require.NoError(t, err)
	assert.Equal(t, "Add", fn.Name)
	assert.Equal(t, []string{"a", "b"}, derive.ExtractIdentifiers(fn.Params))

	_, err = ParseFunc("var x = 1")
	assert.ErrorIs(t, err, derive.ErrUnparsableFunction)
	_, err = ParseFunc("func f() int")
	assert.ErrorIs(t, err, derive.ErrUnparsableFunction)
	_, err = ParseFunc("func f() {} func g() {}")
	assert.ErrorIs(t, err, derive.ErrUnparsableFunction)
}

func TestNamer(t *testing.T) {
	exported := derive.SourceFunc{Name: "Foo", Visibility: derive.Visibility{Public: true}}
	unexported := derive.SourceFunc{Name: "foo"}

	assert.Equal(t, "Weighted_Foo", Namer("weighted_", exported))
	assert.Equal(t, "weighted_foo", Namer("weighted_", unexported))
	assert.Equal(t, "weighted_foo", Namer("Weighted_", unexported))
	assert.Equal(t, "Foo", Namer("", exported))
}

func renderOne(t *testing.T, decl, annotation string) (string, error) {
	t.Helper()
	fn, err := ParseFunc(decl)
	require.NoError(t, err)
	h := NewHost(Options{})
	gen, err := h.Pipeline().Transform(fn, annotation)
	require.NoError(t, err)
	var b strings.Builder
	err = RenderFunc(&b, gen)
	return b.String(), err
}

func TestRenderFuncRules(t *testing.T) {
	out, err := renderOne(t, "func f(a int) int { return a }", "Weight{}")
	require.NoError(t, err)
	assert.Contains(t, out, "func weighted_f(a int) Weight {")
	assert.Contains(t, out, "_ = func() int { return a }()")
	assert.Contains(t, out, "return Weight{}")

	out, err = renderOne(t, "func f(a int, _ string, xs ...int) (int, error) { return a, nil }", "calc")
	require.NoError(t, err)
	assert.Contains(t, out, "_, _ = func() (int, error) { return a, nil }()")
	assert.Contains(t, out, "return calc(a, xs...)")
	assert.Contains(t, out, "(a int, _ string, xs ...int) Weight")

	out, err = renderOne(t, "func f() { println() }", "Weight{}")
	require.NoError(t, err)
	assert.Contains(t, out, "\tfunc() { println() }()\n")

	out, err = renderOne(t, "func f(n int) (v int, err error) { v = n; return }", "(okW, errW)")
	require.NoError(t, err)
	assert.Contains(t, out, "if _, werr := func() (v int, err error) { v = n; return }(); werr == nil {")
	assert.Contains(t, out, "return okW")
	assert.Contains(t, out, "return errW")
}

func TestRenderFuncUnsupportedOutcome(t *testing.T) {
	_, err := renderOne(t, "func f() int { return 1 }", "(a, b)")
	require.Error(t, err)
	assert.ErrorIs(t, err, derive.ErrUnsupportedOutcome)

	_, err = renderOne(t, "func f() { }", "(a, b)")
	assert.ErrorIs(t, err, derive.ErrUnsupportedOutcome)
}

func TestRender(t *testing.T) {
	src := `package calc

import (
	"errors"
	"fmt"
)

// DoSomething prints x.
//
//weight:derive Weight{RefTime: 1}
func DoSomething(x uint32) uint32 {
	fmt.Println(x)
	return x
}

func unused() error { return errors.New("x") }
`
	want := `// Code generated by weightgen from calc.go. DO NOT EDIT.

package calc

import "fmt"

func Weighted_DoSomething(x uint32) Weight {
	_ = func() uint32 {
		fmt.Println(x)
		return x
	}()
	return Weight{RefTime: 1}
}
`
	h := NewHost(Options{})
	out, n, err := h.Generate("pkg/calc.go", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, want, string(out))
}

const importsSrc = `package calc

import (
	"strings"
	str "strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"gopkg.in/yaml.v3"
)

var cfg = struct{ Name string }{"calc"}

//weight:derive Weight{}
func encode(v any) ([]byte, error) {
	c, _ := lru.New[int, int](1)
	_ = c
	_ = expirable.NewLRU[int, int]
	return yaml.Marshal(v)
}

//weight:derive Weight{}
func label(n int) string {
	return cfg.Name + str.Itoa(n)
}

func upper(s string) string { return strings.ToUpper(s) }
`

func TestRenderKeepsUsedImports(t *testing.T) {
	h := NewHost(Options{})
	out, n, err := h.Generate("calc.go", []byte(importsSrc))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := string(out)
	assert.Contains(t, got, "\tlru \"github.com/hashicorp/golang-lru/v2\"\n")
	assert.Contains(t, got, "\t\"github.com/hashicorp/golang-lru/v2/expirable\"\n")
	assert.Contains(t, got, "\t\"gopkg.in/yaml.v3\"\n")
	assert.Contains(t, got, "\tstr \"strconv\"\n")
	assert.NotContains(t, got, "\"strings\"")
	assert.Contains(t, got, "return yaml.Marshal(v)")
}

func TestSourceImportNames(t *testing.T) {
	src := `package calc

import (
	"strings"

	"github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
	. "math"
	_ "embed"
)

func f() {
	_, _ = lru.New[int, int](1)
	_, _ = yaml.Marshal(strings.ToUpper("x"))
	_ = Pi
}
`
	f, err := ParseFile("calc.go", []byte(src), "weight:derive")
	require.NoError(t, err)

	got := make(map[string]string)
	for _, si := range sourceImports(f) {
		got[si.path] = si.name
	}
	assert.Equal(t, map[string]string{
		"strings":                            "strings",
		"github.com/hashicorp/golang-lru/v2": "lru",
		"gopkg.in/yaml.v3":                   "yaml",
		"math":                               "",
	}, got)
}

func TestAssumedName(t *testing.T) {
	tests := map[string]string{
		"fmt":                                "fmt",
		"go/ast":                             "ast",
		"gopkg.in/yaml.v3":                   "yaml",
		"github.com/hashicorp/golang-lru/v2": "golang",
		"github.com/mattn/go-sqlite3":        "sqlite3",
		"example.com/v2":                     "example",
	}
	for path, want := range tests {
		assert.Equal(t, want, assumedName(path), path)
	}
}

func TestRenderCarriesBuildConstraint(t *testing.T) {
	h := NewHost(Options{})
	out, n, err := h.Generate("calc.go", []byte(calcSrc))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Contains(t, string(out), "//go:build !js\n")
	assert.Contains(t, string(out), "func (c *Counter) weighted_check(n int) Weight {")
	assert.Contains(t, string(out), "func Weighted_DoSomething(")
	assert.NotContains(t, string(out), "untouched")

	// Running again over the same input is byte-identical.
	again, _, err := h.Generate("calc.go", []byte(calcSrc))
	require.NoError(t, err)
	assert.Equal(t, out, again)

	// The output carries no directives, so it generates nothing itself.
	self, n, err := h.Generate("calc_weight.go", out)
	require.NoError(t, err)
	assert.Nil(t, self)
	assert.Zero(t, n)
}

func TestGenerateAggregatesFailures(t *testing.T) {
	src := "package p\n\n//weight:derive (a, b, c)\nfunc f() error { return nil }\n\n//weight:derive 1 +\nfunc g() {}\n"
	h := NewHost(Options{})
	_, _, err := h.Generate("p.go", []byte(src))
	require.Error(t, err)
	assert.ErrorIs(t, err, derive.ErrMalformedTuple)
	assert.ErrorIs(t, err, derive.ErrUnparsableAnnotation)
	assert.Contains(t, err.Error(), "f:")
	assert.Contains(t, err.Error(), "g:")

	lenient := NewHost(Options{LenientTuples: true})
	_, _, err = lenient.Generate("p.go", []byte(src))
	require.Error(t, err)
	assert.NotErrorIs(t, err, derive.ErrMalformedTuple)
}

func TestHostPaths(t *testing.T) {
	h := NewHost(Options{})
	assert.Equal(t, "go", h.Language())
	assert.Equal(t, "weight:derive", h.Directive())
	assert.Equal(t, "a/calc_weight.go", h.OutputPath("a/calc.go"))
	assert.Equal(t, "a/calc_weight_test.go", h.OutputPath("a/calc_test.go"))

	custom := NewHost(Options{Suffix: "_gen"})
	assert.Equal(t, "calc_gen.go", custom.OutputPath("calc.go"))
}

func TestHostIsGenerated(t *testing.T) {
	h := NewHost(Options{})
	assert.True(t, h.IsGenerated("x_weight.go", []byte(GeneratedHeader("x.go")+"\npackage x\n")))
	assert.True(t, h.IsGenerated("y.go", []byte("// Code generated by stringer; DO NOT EDIT.\n\npackage y\n")))
	assert.False(t, h.IsGenerated("z.go", []byte("package z\n\nconst s = `\n// Code generated by x. DO NOT EDIT.\n`\n")))
	assert.False(t, h.IsGenerated("calc.go", []byte(calcSrc)))
}
