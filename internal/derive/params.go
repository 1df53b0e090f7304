package derive

// ExtractIdentifiers returns the simple parameter names in declaration order.
// Parameters without a simple name are skipped. Duplicates are kept.
func ExtractIdentifiers(params []Param) []string {
	ids := make([]string, 0, len(params))
	for _, p := range params {
		if p.Ident == "" {
			continue
		}
		ids = append(ids, p.Ident)
	}
	return ids
}

// ExtractArgs is ExtractIdentifiers plus whether the last identifier came from
// a variadic parameter and has to be spread at the call site.
func ExtractArgs(params []Param) (args []string, spread bool) {
	args = ExtractIdentifiers(params)
	if len(params) == 0 || len(args) == 0 {
		return args, false
	}
	last := params[len(params)-1]
	return args, last.Variadic && last.Ident != ""
}
