package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"weightgen/internal/golang"
	"weightgen/internal/sandbox"
)

var (
	tryEval  []string
	tryAllow []string
)

var tryCmd = &cobra.Command{
	Use:   "try [file.go]",
	Short: "Evaluate weighted functions of a Go file in an interpreter",
	Long: `Generates the weighted functions of a single Go file in memory, loads the
file and its companion into a sandboxed interpreter, and evaluates each --eval
expression against them. Nothing is written to disk. The file may only import
the standard library packages the sandbox allows, weightgen/pkg/weight, and
packages named with --allow.

Example:
  weightgen try pallet.go -e 'weighted_transfer(10)' -e 'transfer(10)'`,
	Args: cobra.ExactArgs(1),
	RunE: runTry,
}

func runTry(cmd *cobra.Command, args []string) error {
	path := resolve(args)[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	host := golang.NewHost(goOptions(cfg))
	gen, n, err := host.Generate(path, src)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sb, err := sandbox.New(sandbox.Options{Timeout: cfg.GetSandboxTimeout(), Allow: tryAllow})
	if err != nil {
		return err
	}
	sources := [][]byte{src}
	if gen != nil {
		sources = append(sources, gen)
	}
	if err := sb.Load(ctx, sources...); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%s: %d weighted functions loaded", path, n)))
	return evalAll(ctx, out, sb, tryEval)
}

// evalAll evaluates every expression and reports the first failure after
// printing all results.
func evalAll(ctx context.Context, out io.Writer, sb *sandbox.Sandbox, exprs []string) error {
	var failed int
	for _, expr := range exprs {
		v, err := sb.Eval(ctx, expr)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %s\n", titleStyle.Render(expr), errorStyle.Render(err.Error()))
			continue
		}
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render(expr), successStyle.Render(fmt.Sprintf("%+v", v)))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d expressions failed", failed, len(exprs))
	}
	return nil
}
