package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"weightgen/internal/golang"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const calcSrc = `package calc

import (
	"errors"
	"strconv"
)

type Weight struct {
	RefTime   uint64
	ProofSize uint64
}

var calls int

//weight:derive Weight{}
func doSomething(i uint32) uint32 {
	calls++
	return i * i
}

func weightForDoSomethingElse(i uint32, _ uint32) Weight {
	if i == 0 {
		return Weight{10, 10}
	}
	return Weight{20, 20}
}

//weight:derive weightForDoSomethingElse
func doSomethingElse(i, j uint32) uint32 {
	calls++
	if i == 0 {
		return i + j
	}
	return i / j
}

//weight:derive (Weight{}, Weight{10, 10})
func okSomething(i uint32) error {
	calls++
	if i == 0 {
		return nil
	}
	return errors.New("nonzero")
}

//weight:derive (Weight{1, 0}, Weight{2, 0})
func parse(s string) (n int, err error) {
	calls++
	n, err = strconv.Atoi(s)
	return
}

func costOf(b int) Weight { return Weight{uint64(b), 0} }

//weight:derive costOf
func pair(_ int, b int) int {
	calls++
	return b
}

func total(xs ...int) Weight {
	n := 0
	for _, x := range xs {
		n += x
	}
	return Weight{uint64(n), 0}
}

//weight:fn total
func sum(xs ...int) int {
	calls++
	return len(xs)
}
`

// load generates the weighted functions for src and loads both into a new
// sandbox.
func load(t *testing.T, src string, opts golang.Options) *Sandbox {
	t.Helper()
	out, n, err := golang.NewHost(opts).Generate("calc.go", []byte(src))
	require.NoError(t, err)
	require.NotZero(t, n)

	sb, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, sb.Load(context.Background(), []byte(src), out))
	return sb
}

func evalBool(t *testing.T, sb *Sandbox, expr string) bool {
	t.Helper()
	v, err := sb.Eval(context.Background(), expr)
	require.NoError(t, err, expr)
	b, ok := v.(bool)
	require.True(t, ok, "%s is %T", expr, v)
	return b
}

func evalInt(t *testing.T, sb *Sandbox, expr string) int {
	t.Helper()
	v, err := sb.Eval(context.Background(), expr)
	require.NoError(t, err, expr)
	n, ok := v.(int)
	require.True(t, ok, "%s is %T", expr, v)
	return n
}

func TestConstantWeight(t *testing.T) {
	sb := load(t, calcSrc, golang.Options{})
	assert.True(t, evalBool(t, sb, "weighted_doSomething(2) == Weight{}"))
}

func TestDelegateWeight(t *testing.T) {
	sb := load(t, calcSrc, golang.Options{})
	assert.True(t, evalBool(t, sb, "weighted_doSomethingElse(0, 4) == Weight{10, 10}"))
	assert.True(t, evalBool(t, sb, "weighted_doSomethingElse(1, 4) == Weight{20, 20}"))
}

func TestResultBranchWeight(t *testing.T) {
	sb := load(t, calcSrc, golang.Options{})
	assert.True(t, evalBool(t, sb, "weighted_okSomething(0) == Weight{}"))
	assert.True(t, evalBool(t, sb, "weighted_okSomething(1) == Weight{10, 10}"))

	// Named results and a non-error first result.
	assert.True(t, evalBool(t, sb, `weighted_parse("12") == Weight{1, 0}`))
	assert.True(t, evalBool(t, sb, `weighted_parse("x") == Weight{2, 0}`))
}

func TestEvalComparisonValues(t *testing.T) {
	sb, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, sb.Load(context.Background(), []byte("package p\n\ntype W struct{ A uint64 }\n\nfunc w(n uint64) W { return W{n} }\n")))

	assert.True(t, evalBool(t, sb, "w(1) == W{1}"))
	assert.False(t, evalBool(t, sb, "w(2) == W{1}"))
	assert.True(t, evalBool(t, sb, "1 < 2"))
	assert.Equal(t, 3, evalInt(t, sb, "1 + 2"))
}

func TestNonSimpleParamsOmitted(t *testing.T) {
	sb := load(t, calcSrc, golang.Options{})
	assert.True(t, evalBool(t, sb, "weighted_pair(100, 5) == Weight{5, 0}"))
}

func TestVariadicDelegate(t *testing.T) {
	sb := load(t, calcSrc, golang.Options{})
	assert.True(t, evalBool(t, sb, "weighted_sum(1, 2, 3) == Weight{6, 0}"))
	assert.True(t, evalBool(t, sb, "weighted_sum() == Weight{}"))
}

func TestBodyRunsExactlyOnce(t *testing.T) {
	sb := load(t, calcSrc, golang.Options{})
	calls := []string{
		"weighted_doSomething(3)",
		"weighted_doSomethingElse(0, 4)",
		"weighted_doSomethingElse(1, 4)",
		"weighted_okSomething(0)",
		"weighted_okSomething(1)",
		`weighted_parse("7")`,
		"weighted_pair(1, 2)",
		"weighted_sum(1)",
	}
	for _, call := range calls {
		before := evalInt(t, sb, "calls")
		_, err := sb.Eval(context.Background(), call)
		require.NoError(t, err, call)
		assert.Equal(t, before+1, evalInt(t, sb, "calls"), call)
	}
}

func TestOriginalFunctionsUntouched(t *testing.T) {
	sb := load(t, calcSrc, golang.Options{})
	assert.Equal(t, 9, evalInt(t, sb, "int(doSomething(3))"))
	assert.Equal(t, 4, evalInt(t, sb, "int(doSomethingElse(0, 4))"))
}

func TestWeightPackage(t *testing.T) {
	src := `package calc

import "weightgen/pkg/weight"

//weight:derive weight.FromParts(10, 10)
func Square(i uint32) uint32 {
	return i * i
}
`
	sb := load(t, src, golang.Options{WeightType: "weight.Weight"})
	assert.True(t, evalBool(t, sb, "Weighted_Square(2) == weight.FromParts(10, 10)"))
	assert.True(t, evalBool(t, sb, "Square(3) == 9"))
}

func TestForbiddenImports(t *testing.T) {
	sb, err := New(Options{})
	require.NoError(t, err)
	err = sb.Load(context.Background(), []byte("package p\n\nimport \"os\"\n\nfunc f() { os.Exit(1) }\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden imports")

	allowing, err := New(Options{Allow: []string{"os"}})
	require.NoError(t, err)
	require.NoError(t, allowing.Load(context.Background(), []byte("package p\n\nimport \"os\"\n\nfunc pid() int { return os.Getpid() }\n")))
}

func TestLoadOnce(t *testing.T) {
	sb, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, sb.Load(context.Background(), []byte("package p\n\nvar x = 1\n")))
	assert.Error(t, sb.Load(context.Background(), []byte("package p\n\nvar y = 2\n")))
}

func TestEvalErrors(t *testing.T) {
	sb, err := New(Options{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, sb.Load(context.Background(), []byte(`package p

import "time"

func slow() int {
	time.Sleep(300 * time.Millisecond)
	return 1
}

func boom() int {
	panic("boom")
}
`)))

	_, err = sb.Eval(context.Background(), "slow()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	_, err = sb.Eval(context.Background(), "boom()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = sb.Eval(context.Background(), "undefinedThing()")
	assert.Error(t, err)
}
