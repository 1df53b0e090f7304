package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"weightgen/internal/generate"
	"weightgen/internal/logging"
)

var (
	genCheck  bool
	genDiff   bool
	genStdout bool
)

var genCmd = &cobra.Command{
	Use:   "gen [paths...]",
	Short: "Write weighted functions for annotated sources",
	Long: `Generates the weighted companion file of every Go and Rust source that
carries weight annotations, and removes companions whose source no longer has any.

Paths are files, directories (their files only) or dir/... for a recursive walk.
The default is ./... in the workspace.

Examples:
  weightgen gen
  weightgen gen ./pallets/... lib.rs
  weightgen gen --check --diff`,
	RunE: runGen,
}

func runGen(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"./..."}
	}
	out := cmd.OutOrStdout()

	g, err := newGenerator(cfg, genCheck)
	if err != nil {
		return err
	}
	paths, err := g.Expand(resolve(args))
	if err != nil {
		return err
	}
	if genStdout {
		return printGenerated(out, paths)
	}

	ctx, cancel := signalContext()
	defer cancel()

	timer := logging.StartTimer(logging.CategoryGenerate, "gen")
	results, runErr := g.Run(ctx, paths)
	timer.Stop()

	for _, r := range results {
		if r.Status == generate.StatusUnchanged || r.Status == generate.StatusSkipped {
			if verbose {
				fmt.Fprintln(out, renderResult(r))
			}
			continue
		}
		fmt.Fprintln(out, renderResult(r))
		if genDiff && r.Diff != nil {
			fmt.Fprint(out, renderDiff(r.Diff))
		}
	}
	s := generate.Summarize(results)
	fmt.Fprintln(out, renderSummary(s))

	if runErr != nil {
		return fmt.Errorf("%d files failed", s.Failed)
	}
	if genCheck && s.Stale > 0 {
		return fmt.Errorf("%d generated files are out of date; run weightgen gen", s.Stale)
	}
	return nil
}

// printGenerated writes what gen would write, without touching the disk.
func printGenerated(out io.Writer, paths []string) error {
	for _, path := range paths {
		host, ok := hostFor(cfg, path)
		if !ok {
			continue
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if host.IsGenerated(path, src) {
			continue
		}
		content, n, err := host.Generate(path, src)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		fmt.Fprintln(out, mutedStyle.Render("// "+host.OutputPath(path)))
		if _, err := out.Write(content); err != nil {
			return err
		}
	}
	return nil
}
