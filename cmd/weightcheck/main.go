// Command weightcheck reports malformed weight directives and delegates whose
// signature does not match the annotated function.
//
// Usage:
//
//	weightcheck [-directive weight:derive] [-weight-type Weight] ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"weightgen/internal/lint"
)

func main() { singlechecker.Main(lint.Analyzer) }
