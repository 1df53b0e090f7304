// Package sandbox runs Go source and its generated weighted functions in the
// yaegi interpreter, so generated code can be exercised without a build.
//
// Sources are restricted to an import whitelist: no filesystem, network or
// process access. Every evaluation is bounded by a context and a timeout.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"weightgen/internal/logging"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 5 * time.Second

// defaultAllowed are the packages sandboxed code may import.
var defaultAllowed = []string{
	"bytes",
	"encoding/base64",
	"encoding/json",
	"errors",
	"fmt",
	"math",
	"math/bits",
	"path",
	"regexp",
	"sort",
	"strconv",
	"strings",
	"time",
	"unicode",
	WeightPackage,

	// Not allowed:
	// "os", "os/exec", "net", "net/http", "syscall", "unsafe"
}

// Options configures a Sandbox.
type Options struct {
	Timeout time.Duration
	// Allow adds packages to the import whitelist.
	Allow []string
}

// Sandbox is one interpreter instance. Load sources first, then Eval
// expressions against them. Methods are serialised.
type Sandbox struct {
	mu      sync.Mutex
	interp  *interp.Interpreter
	allowed map[string]bool
	timeout time.Duration
	evals   int
	loaded  bool
}

// New creates a Sandbox with the standard library and the weight package
// available.
func New(opts Options) (*Sandbox, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	allowed := make(map[string]bool)
	for _, p := range defaultAllowed {
		allowed[p] = true
	}
	for _, p := range opts.Allow {
		allowed[p] = true
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("failed to load weight symbols: %w", err)
	}
	return &Sandbox{interp: i, allowed: allowed, timeout: opts.Timeout}, nil
}

// Load evaluates sources as a single package. They are typically a source
// file and its generated sibling; their package clauses are ignored and
// their imports merged. Load may be called once.
func (s *Sandbox) Load(ctx context.Context, sources ...[]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return fmt.Errorf("sandbox already loaded")
	}

	merged, err := s.merge(sources)
	if err != nil {
		return err
	}
	logging.SandboxDebug("loading %d sources (%d bytes)", len(sources), len(merged))
	if err := s.run(ctx, func() error {
		_, err := s.interp.Eval(string(merged))
		return err
	}); err != nil {
		return fmt.Errorf("code evaluation failed: %w", err)
	}
	s.loaded = true
	return nil
}

// Eval evaluates a Go expression against the loaded sources and returns its
// value.
func (s *Sandbox) Eval(ctx context.Context, expr string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evals++
	name := fmt.Sprintf("weightgenEval%d", s.evals)
	// The value is bound before it is returned: yaegi cannot convert some
	// untyped results, such as comparisons, straight to interface{}.
	evalSrc := fmt.Sprintf("package main\n\nfunc %s() interface{} {\n\tv := %s\n\treturn v\n}\n", name, expr)
	if _, err := s.interp.Eval(evalSrc); err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	v, err := s.interp.Eval("main." + name)
	if err != nil {
		return nil, fmt.Errorf("eval func for %q not found: %w", expr, err)
	}
	thunk, ok := v.Interface().(func() interface{})
	if !ok {
		return nil, fmt.Errorf("eval func for %q has type %s", expr, v.Type())
	}

	var result interface{}
	err = s.run(ctx, func() error {
		result = thunk()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	logging.SandboxDebug("%s = %v", expr, result)
	return result, nil
}

// run executes fn with the context and the sandbox timeout. Panics in
// interpreted code are returned as errors.
func (s *Sandbox) run(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errChan <- fmt.Errorf("panic: %v", r)
			}
		}()
		errChan <- fn()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return fmt.Errorf("execution timed out: %w", ctx.Err())
	}
}

// merge validates the imports of every source and joins their declarations
// into one package main file.
func (s *Sandbox) merge(sources [][]byte) ([]byte, error) {
	fset := token.NewFileSet()
	imports := make(map[string]bool)
	var forbidden []string
	var decls bytes.Buffer

	for n, src := range sources {
		f, err := parser.ParseFile(fset, fmt.Sprintf("source%d.go", n), src, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parse source %d: %w", n, err)
		}
		for _, imp := range f.Imports {
			path, _ := strconv.Unquote(imp.Path.Value)
			if !s.allowed[path] {
				forbidden = append(forbidden, path)
				continue
			}
			spec := imp.Path.Value
			if imp.Name != nil {
				spec = imp.Name.Name + " " + spec
			}
			imports[spec] = true
		}
		for _, d := range f.Decls {
			if gd, ok := d.(*ast.GenDecl); ok && gd.Tok == token.IMPORT {
				continue
			}
			start := fset.Position(d.Pos()).Offset
			end := fset.Position(d.End()).Offset
			decls.Write(src[start:end])
			decls.WriteString("\n\n")
		}
	}
	if len(forbidden) > 0 {
		return nil, fmt.Errorf("forbidden imports detected: %v", forbidden)
	}

	specs := make([]string, 0, len(imports))
	for spec := range imports {
		specs = append(specs, spec)
	}
	sort.Strings(specs)

	var b bytes.Buffer
	b.WriteString("package main\n\n")
	for _, spec := range specs {
		fmt.Fprintf(&b, "import %s\n", spec)
	}
	b.WriteString("\n")
	b.Write(decls.Bytes())
	return b.Bytes(), nil
}
