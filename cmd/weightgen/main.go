// Command weightgen writes weighted companions of annotated Go and Rust
// functions into sibling generated files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"weightgen/internal/config"
	"weightgen/internal/golang"
	"weightgen/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string

	// cfg is loaded once per invocation by the root command.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "weightgen",
	Short: "Generate weighted companions of annotated functions",
	Long: `weightgen reads Go and Rust sources for functions annotated with a weight
and writes, next to each source file, a companion that runs the original body
and returns its weight instead of its result.

Go:   //weight:derive <expr | delegate | (success, failure)>
Rust: #[derive_weight(<expr | delegate | (success, failure)>)]

Configuration is read from .weightgen.yaml, searched from the workspace upwards.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.Find(workspaceDir())
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}

		opts := c.Logging.Options()
		if verbose {
			opts.Level = "debug"
		}
		if err := logging.Initialize(opts); err != nil {
			return err
		}
		cfg = c
		logging.BootDebug("config resolved from %s", path)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the weightgen version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "weightgen %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: nearest "+config.FileName+")")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	genCmd.Flags().BoolVar(&genCheck, "check", false, "Report out-of-date outputs without writing; exit non-zero if any")
	genCmd.Flags().BoolVar(&genDiff, "diff", false, "With --check, print the drift of each stale output")
	genCmd.Flags().BoolVar(&genStdout, "stdout", false, "Print generated output instead of writing files")

	classifyCmd.Flags().StringVar(&classifyLang, "lang", "go", "Annotation grammar: go or rust")
	classifyCmd.Flags().StringVar(&classifyShape, "shape", "", "Force a shape: expr, fn or result")
	classifyCmd.Flags().StringVar(&classifyFile, "file", "", "List the annotated functions of a source file instead")

	watchCmd.Flags().BoolVarP(&watchRecursive, "recursive", "r", true, "Watch subdirectories too")

	tryCmd.Flags().StringArrayVarP(&tryEval, "eval", "e", nil, "Expression to evaluate against the file and its weighted functions")
	tryCmd.Flags().StringSliceVar(&tryAllow, "allow", nil, "Additional packages the file may import")

	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tryCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func workspaceDir() string {
	if workspace != "" {
		return workspace
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// goOptions maps the configuration onto the Go host.
func goOptions(c *config.Config) golang.Options {
	return golang.Options{
		Directive:     c.Annotation.Directive,
		Prefix:        c.Weight.Prefix,
		WeightType:    c.Weight.Type,
		Suffix:        c.Output.Suffix,
		LenientTuples: c.Annotation.LenientTuples,
	}
}
