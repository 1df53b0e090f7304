// Package generate drives the hosts over a set of files: it reads each input,
// asks the matching host for the weighted output and writes, removes or
// checks the generated sibling file.
package generate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"weightgen/internal/diff"
	"weightgen/internal/logging"
)

// Host is one source language.
type Host interface {
	Language() string
	Extensions() []string
	// OutputPath names the generated sibling of an input file.
	OutputPath(path string) string
	// IsGenerated reports whether src is itself generated and must be skipped.
	IsGenerated(path string, src []byte) bool
	// Generate returns the output for src and the number of weighted
	// functions in it. A nil output means src has nothing to generate.
	Generate(path string, src []byte) ([]byte, int, error)
}

// Status is what happened to one input file.
type Status int

const (
	StatusSkipped   Status = iota // no annotations and no previous output, or a generated input
	StatusUnchanged               // output on disk is current
	StatusWritten                 // output written
	StatusRemoved                 // stale output removed
	StatusStale                   // check mode: output on disk differs
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusUnchanged:
		return "unchanged"
	case StatusWritten:
		return "written"
	case StatusRemoved:
		return "removed"
	case StatusStale:
		return "stale"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes one processed input.
type Result struct {
	Path     string
	Output   string
	Language string
	Funcs    int
	Status   Status
	// Content is the output weightgen would write. Nil when there is none.
	Content []byte
	// Diff is set in check mode when Status is StatusStale.
	Diff *diff.FileDiff
	Err  error
}

// Options configures a Generator.
type Options struct {
	// Workers bounds the number of files processed at once. Zero means
	// GOMAXPROCS.
	Workers int
	// CacheSize is the number of rendered outputs kept by content hash.
	// Zero disables the cache.
	CacheSize int
	// Check reports drift instead of touching the file system.
	Check bool
}

type cached struct {
	out   []byte
	funcs int
}

// Generator runs hosts over files. It is safe for concurrent use.
type Generator struct {
	opts  Options
	hosts map[string]Host
	cache *lru.Cache[[sha256.Size]byte, cached]
	hits  atomic.Int64
}

// New returns a Generator over hosts. Two hosts claiming the same extension
// is an error.
func New(opts Options, hosts ...Host) (*Generator, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	g := &Generator{opts: opts, hosts: make(map[string]Host)}
	for _, h := range hosts {
		for _, ext := range h.Extensions() {
			if prev, ok := g.hosts[ext]; ok {
				return nil, fmt.Errorf("extension %s claimed by both %s and %s", ext, prev.Language(), h.Language())
			}
			g.hosts[ext] = h
		}
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[[sha256.Size]byte, cached](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create output cache: %w", err)
		}
		g.cache = cache
	}
	return g, nil
}

// HostFor returns the host handling path, by extension.
func (g *Generator) HostFor(path string) (Host, bool) {
	h, ok := g.hosts[filepath.Ext(path)]
	return h, ok
}

// CacheHits is the number of files served from the output cache.
func (g *Generator) CacheHits() int64 { return g.hits.Load() }

// Run processes paths in parallel and returns one Result per path, in the
// given order. Per-file failures are combined into the returned error; a
// cancelled context stops scheduling further files.
func (g *Generator) Run(ctx context.Context, paths []string) ([]Result, error) {
	timer := logging.StartTimer(logging.CategoryGenerate, "run")
	defer timer.Stop()

	results := make([]Result, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = g.File(egCtx, path)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}

	var errs error
	for _, r := range results {
		if r.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.Path, r.Err))
		}
	}
	s := Summarize(results)
	logging.Generate("%d files: %d written, %d unchanged, %d removed, %d stale, %d failed",
		len(results), s.Written, s.Unchanged, s.Removed, s.Stale, s.Failed)
	return results, errs
}

// File processes a single input.
func (g *Generator) File(ctx context.Context, path string) Result {
	res := Result{Path: path}
	fail := func(err error) Result {
		res.Status = StatusFailed
		res.Err = err
		logging.GenerateError("%s: %v", path, err)
		return res
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	host, ok := g.HostFor(path)
	if !ok {
		return fail(fmt.Errorf("no host for %q files", filepath.Ext(path)))
	}
	res.Language = host.Language()
	res.Output = host.OutputPath(path)

	src, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	if host.IsGenerated(path, src) {
		logging.GenerateDebug("%s: generated input, skipped", path)
		res.Status = StatusSkipped
		return res
	}

	out, funcs, err := g.generate(host, path, src)
	if err != nil {
		return fail(err)
	}
	res.Content, res.Funcs = out, funcs

	existing, err := os.ReadFile(res.Output)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		existing = nil
	case err != nil:
		return fail(err)
	case !host.IsGenerated(res.Output, existing):
		return fail(fmt.Errorf("%s exists and was not generated by weightgen; refusing to overwrite", res.Output))
	}

	switch {
	case out == nil && existing == nil:
		res.Status = StatusSkipped
	case bytes.Equal(out, existing):
		res.Status = StatusUnchanged
	case g.opts.Check:
		res.Status = StatusStale
		res.Diff = diff.Compute(res.Output, res.Output, string(existing), string(out))
	case out == nil:
		if err := os.Remove(res.Output); err != nil {
			return fail(err)
		}
		logging.Generate("removed %s", res.Output)
		res.Status = StatusRemoved
	default:
		if err := os.WriteFile(res.Output, out, 0o644); err != nil {
			return fail(err)
		}
		logging.Generate("wrote %s (%d functions)", res.Output, funcs)
		res.Status = StatusWritten
	}
	return res
}

// generate asks host for the output of src, consulting the cache first.
func (g *Generator) generate(host Host, path string, src []byte) ([]byte, int, error) {
	if g.cache == nil {
		return host.Generate(path, src)
	}
	h := sha256.New()
	h.Write([]byte(host.Language()))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(src)
	var key [sha256.Size]byte
	copy(key[:], h.Sum(nil))

	if c, ok := g.cache.Get(key); ok {
		g.hits.Add(1)
		logging.GenerateDebug("%s: cache hit", path)
		return c.out, c.funcs, nil
	}
	out, funcs, err := host.Generate(path, src)
	if err != nil {
		return nil, 0, err
	}
	g.cache.Add(key, cached{out: out, funcs: funcs})
	return out, funcs, nil
}

// Expand turns command line arguments into input files. A directory stands
// for the files directly in it, "dir/..." for every file below it. Only
// files some host handles are returned; vendor, testdata and directories
// starting with "." or "_" are not descended into.
func (g *Generator) Expand(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		root, recursive := arg, false
		if arg == "..." || filepath.Base(arg) == "..." {
			root, recursive = filepath.Dir(arg), true
		}
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if _, ok := g.HostFor(root); !ok {
				return nil, fmt.Errorf("%s: no host for %q files", root, filepath.Ext(root))
			}
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == root {
					return nil
				}
				if !recursive || SkipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if _, ok := g.HostFor(path); ok {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// SkipDir reports whether a directory is never searched for inputs.
func SkipDir(name string) bool {
	switch name {
	case "vendor", "testdata", "target", "node_modules":
		return true
	}
	return name[0] == '.' || name[0] == '_'
}

// Summary counts results by status.
type Summary struct {
	Written   int
	Unchanged int
	Removed   int
	Stale     int
	Skipped   int
	Failed    int
	Funcs     int
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Funcs += r.Funcs
		switch r.Status {
		case StatusWritten:
			s.Written++
		case StatusUnchanged:
			s.Unchanged++
		case StatusRemoved:
			s.Removed++
		case StatusStale:
			s.Stale++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
