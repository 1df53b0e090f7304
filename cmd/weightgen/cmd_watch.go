package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"weightgen/internal/generate"
	"weightgen/internal/logging"
	"weightgen/internal/watch"
)

var watchRecursive bool

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Regenerate weighted functions as sources change",
	Long: `Runs gen once over the given directories, then watches them and regenerates
each source that changes once it has been quiet for watch.debounce. Deleting a
source removes its generated companion. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	roots := resolve(args)
	out := cmd.OutOrStdout()

	g, err := newGenerator(cfg, false)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	initial := make([]string, len(roots))
	for i, r := range roots {
		initial[i] = r
		if watchRecursive {
			initial[i] = filepath.Join(r, "...")
		}
	}
	paths, err := g.Expand(initial)
	if err != nil {
		return err
	}
	results, _ := g.Run(ctx, paths)
	fmt.Fprintln(out, renderSummary(generate.Summarize(results)))

	w, err := watch.New(g, watch.Options{
		Roots:     roots,
		Recursive: watchRecursive,
		Debounce:  cfg.GetDebounce(),
		OnResults: func(results []generate.Result, _ error) {
			for _, r := range results {
				if r.Status != generate.StatusUnchanged && r.Status != generate.StatusSkipped {
					fmt.Fprintln(out, renderResult(r))
				}
			}
		},
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("watching %d directories, Ctrl-C to stop", len(w.WatchedDirs()))))

	<-ctx.Done()
	w.Stop()

	s := w.GetStats()
	logging.Watch("watch stopped after %d runs (%d errors)", s.Runs, s.Errors)
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d regenerations, %d cache hits", s.Runs, g.CacheHits())))
	return nil
}
