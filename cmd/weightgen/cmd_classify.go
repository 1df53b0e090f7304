package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"weightgen/internal/derive"
)

var (
	classifyLang  string
	classifyShape string
	classifyFile  string
)

var classifyCmd = &cobra.Command{
	Use:   "classify [annotation]",
	Short: "Show how an annotation is interpreted",
	Long: `Classifies annotation text the way gen does: an identifier is a weight
function called with the parameters, a two-element tuple is a (success, failure)
pair chosen by the outcome, and any other expression is a constant weight.

With --file, lists every annotated function of a source file instead.

Examples:
  weightgen classify 'Weight{}'
  weightgen classify --lang rust '(Weight::zero(), Weight::from_parts(10, 10))'
  weightgen classify --file pallet.go`,
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if classifyFile != "" {
		return classifySites(out, resolve([]string{classifyFile})[0])
	}
	if len(args) == 0 {
		return fmt.Errorf("classify needs an annotation or --file")
	}

	var host siteHost
	for _, h := range newHosts(cfg) {
		if h.Language() == classifyLang {
			host = h
		}
	}
	if host == nil {
		return fmt.Errorf("unknown language %q (want go or rust)", classifyLang)
	}
	shape := derive.ShapeNone
	if classifyShape != "" {
		s, err := derive.ParseShape(classifyShape)
		if err != nil {
			return err
		}
		shape = s
	}

	a, err := host.Pipeline().Classifier().ClassifyAs(strings.Join(args, " "), shape)
	if err != nil {
		return err
	}
	printAnnotation(out, a)
	return nil
}

func classifySites(out io.Writer, path string) error {
	host, ok := hostFor(cfg, path)
	if !ok {
		return fmt.Errorf("%s: no host for this file type", path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sites, err := host.Sites(path, src)
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no annotated functions"))
		return nil
	}

	classifier := host.Pipeline().Classifier()
	for _, s := range sites {
		fmt.Fprintln(out, titleStyle.Render(s.Func.Name)+" "+mutedStyle.Render(s.Func.Pos))
		a, err := classifier.ClassifyAs(s.Annotation, s.Shape)
		if err != nil {
			fmt.Fprintln(out, "  "+errorStyle.Render(err.Error()))
			continue
		}
		printAnnotation(indent{out}, a)
	}
	return nil
}

func printAnnotation(out io.Writer, a derive.Annotation) {
	fmt.Fprintln(out, field("shape", infoStyle.Render(a.Shape.String())))
	switch a.Shape {
	case derive.ShapeConstant:
		fmt.Fprintln(out, field("weight", a.Expr))
	case derive.ShapeDelegate:
		fmt.Fprintln(out, field("delegate", a.Delegate))
	case derive.ShapeResultBranch:
		fmt.Fprintln(out, field("success", a.Success))
		fmt.Fprintln(out, field("failure", a.Failure))
	}
}

// indent prefixes every write with two spaces. Callers write whole lines.
type indent struct{ w io.Writer }

func (i indent) Write(p []byte) (int, error) {
	if _, err := io.WriteString(i.w, "  "); err != nil {
		return 0, err
	}
	return i.w.Write(p)
}
