package sandbox

import (
	"reflect"

	"weightgen/pkg/weight"
)

// WeightPackage is the import path of the reference weight type.
const WeightPackage = "weightgen/pkg/weight"

// Symbols exposes pkg/weight to interpreted code, in the layout yaegi
// expects: "import/path/name" -> symbol -> value.
var Symbols = map[string]map[string]reflect.Value{
	WeightPackage + "/weight": {
		"Weight":    reflect.ValueOf((*weight.Weight)(nil)),
		"Zero":      reflect.ValueOf(weight.Zero),
		"FromParts": reflect.ValueOf(weight.FromParts),
	},
}
