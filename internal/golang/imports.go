package golang

import (
	"go/ast"
	"path"
	"strconv"
	"strings"
	"unicode"
)

// sourceImport is one import of the source file and the name its package is
// referred to by. name is empty when it cannot be told from the source.
type sourceImport struct {
	spec  string
	path  string
	local string // name written in the import spec, if any
	name  string
	dot   bool
}

// sourceImports returns the imports of f in order, skipping blank imports
// which only matter for their side effects in the original file.
//
// An unnamed import's package name is not always its last path element
// (gopkg.in/yaml.v3 is yaml, github.com/hashicorp/golang-lru/v2 is lru). The
// source file compiles, so every import it has is referred to there: the name
// is the assumed one when the source uses it, otherwise the single leftover
// package reference of the source that the import path contains.
func sourceImports(f *File) []sourceImport {
	refs := packageRefs(f.AST)
	claimed := make(map[string]bool)

	var imports []sourceImport
	for _, imp := range f.AST.Imports {
		p, _ := strconv.Unquote(imp.Path.Value)
		si := sourceImport{spec: imp.Path.Value, path: p}
		if imp.Name != nil {
			switch imp.Name.Name {
			case "_":
				continue
			case ".":
				si.dot = true
			default:
				si.name = imp.Name.Name
			}
			si.local = imp.Name.Name
			si.spec = imp.Name.Name + " " + si.spec
		} else if assumed := assumedName(p); refs[assumed] {
			si.name = assumed
		}
		if si.name != "" {
			claimed[si.name] = true
		}
		imports = append(imports, si)
	}

	for i := range imports {
		si := &imports[i]
		if si.name != "" || si.dot {
			continue
		}
		var candidates []string
		for ref := range refs {
			if !claimed[ref] && strings.Contains(strings.ToLower(si.path), strings.ToLower(ref)) {
				candidates = append(candidates, ref)
			}
		}
		if len(candidates) == 1 {
			si.name = candidates[0]
			claimed[si.name] = true
		}
	}
	return imports
}

// unusedImports returns the imports draft does not refer to. Dot imports
// are always kept. Imports of unknown name are kept when draft refers to a
// name that neither a known import nor a declaration of f accounts for. The
// declarations of f count because draft holds the generated functions only.
func unusedImports(f *File, imports []sourceImport, draft *ast.File) []sourceImport {
	refs := packageRefs(draft)
	claimed := make(map[string]bool)
	for _, si := range imports {
		if si.name != "" {
			claimed[si.name] = true
		}
	}
	unclaimed := false
	for ref := range refs {
		if !claimed[ref] && f.AST.Scope.Lookup(ref) == nil {
			unclaimed = true
			break
		}
	}

	var unused []sourceImport
	for _, si := range imports {
		switch {
		case si.dot:
		case si.name == "":
			if !unclaimed {
				unused = append(unused, si)
			}
		case !refs[si.name]:
			unused = append(unused, si)
		}
	}
	return unused
}

// packageRefs returns the identifiers used as the left side of a selector
// that the file does not declare. f must be parsed with object resolution.
func packageRefs(f *ast.File) map[string]bool {
	refs := make(map[string]bool)
	ast.Inspect(f, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if id, ok := sel.X.(*ast.Ident); ok && id.Obj == nil {
			refs[id.Name] = true
		}
		return true
	})
	return refs
}

// assumedName guesses a package name from its import path the way goimports
// does: the last element, skipping a major version suffix, without a "go-"
// prefix and cut at the first character that is not valid in an identifier.
func assumedName(importPath string) string {
	base := path.Base(importPath)
	if isMajorVersion(base) {
		if dir := path.Dir(importPath); dir != "." {
			base = path.Base(dir)
		}
	}
	base = strings.TrimPrefix(base, "go-")
	if i := strings.IndexFunc(base, notIdentifier); i >= 0 {
		base = base[:i]
	}
	return base
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

func notIdentifier(r rune) bool {
	return !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}
