package rust

import (
	"fmt"
	"strings"

	"weightgen/internal/derive"
)

// GeneratedHeader is the first line of every generated Rust file.
func GeneratedHeader(source string) string {
	return fmt.Sprintf("// Code generated by weightgen from %s. DO NOT EDIT.\n", source)
}

// RenderFunc writes one weighted function. Rust blocks are expressions, so
// the original body is used as is.
func RenderFunc(b *strings.Builder, g derive.GeneratedFunc) error {
	body := g.Body
	if body.Rule == derive.RuleBranchOnOutcome && len(body.OriginalResults) == 0 {
		return &derive.TransformError{
			Func: g.Source,
			Err:  fmt.Errorf("%w: function returns ()", derive.ErrUnsupportedOutcome),
		}
	}

	b.WriteString("#[allow(dead_code)]\n")
	if g.Visibility.Modifier != "" {
		b.WriteString(g.Visibility.Modifier)
		b.WriteString(" ")
	}
	if g.Qualifiers != "" {
		b.WriteString(g.Qualifiers)
		b.WriteString(" ")
	}
	fmt.Fprintf(b, "fn %s%s(%s) -> %s", g.Name, g.Generics, paramList(g.Params), g.WeightType)
	if g.Constraints != "" {
		b.WriteString("\n")
		b.WriteString(g.Constraints)
		b.WriteString("\n{\n")
	} else {
		b.WriteString(" {\n")
	}

	switch body.Rule {
	case derive.RuleDiscardThenExpr:
		fmt.Fprintf(b, "    let _ = %s;\n", body.Original)
		fmt.Fprintf(b, "    %s\n", body.Expr)
	case derive.RuleDiscardThenDelegate:
		fmt.Fprintf(b, "    let _ = %s;\n", body.Original)
		fmt.Fprintf(b, "    %s(%s)\n", body.Delegate, strings.Join(body.Args, ", "))
	case derive.RuleBranchOnOutcome:
		fmt.Fprintf(b, "    if let Ok(_) = %s {\n", body.Original)
		fmt.Fprintf(b, "        %s\n", body.Success)
		b.WriteString("    } else {\n")
		fmt.Fprintf(b, "        %s\n", body.Failure)
		b.WriteString("    }\n")
	default:
		return fmt.Errorf("unknown rule %d", body.Rule)
	}
	b.WriteString("}\n")
	return nil
}

func paramList(params []derive.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Type == "" {
			parts = append(parts, p.Pattern)
			continue
		}
		parts = append(parts, p.Pattern+": "+p.Type)
	}
	return strings.Join(parts, ", ")
}

// Render builds the file to include! next to source. It returns nil when
// there is nothing to generate.
func Render(source string, funcs []derive.GeneratedFunc) ([]byte, error) {
	if len(funcs) == 0 {
		return nil, nil
	}
	var b strings.Builder
	b.WriteString(GeneratedHeader(source))
	for _, g := range funcs {
		b.WriteString("\n")
		if err := RenderFunc(&b, g); err != nil {
			return nil, err
		}
	}
	return []byte(b.String()), nil
}
