package build

import (
	"reflect"

	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/traefik/yaegi/interp"
)

// runtimePath is the key yaegi expects for an import: path plus package name.
const runtimePath = "github.com/specialistvlad/nodegraph/pkg/nodert/nodert"

// Symbols exposes the nodert package to interpreted code.
var Symbols = interp.Exports{
	runtimePath: {
		// functions
		"After":        reflect.ValueOf(nodert.After),
		"And":          reflect.ValueOf(nodert.And),
		"AsBool":       reflect.ValueOf(nodert.AsBool),
		"AsNumber":     reflect.ValueOf(nodert.AsNumber),
		"AsString":     reflect.ValueOf(nodert.AsString),
		"Compare":      reflect.ValueOf(nodert.Compare),
		"Concat":       reflect.ValueOf(nodert.Concat),
		"Div":          reflect.ValueOf(nodert.Div),
		"Env":          reflect.ValueOf(nodert.Env),
		"Fail":         reflect.ValueOf(nodert.Fail),
		"Failf":        reflect.ValueOf(nodert.Failf),
		"FormatNumber": reflect.ValueOf(nodert.FormatNumber),
		"NewProgram":   reflect.ValueOf(nodert.NewProgram),
		"Or":           reflect.ValueOf(nodert.Or),
		"ParseBool":    reflect.ValueOf(nodert.ParseBool),
		"ParseNumber":  reflect.ValueOf(nodert.ParseNumber),
		"Print":        reflect.ValueOf(nodert.Print),
		"ToString":     reflect.ValueOf(nodert.ToString),

		// variables and constants
		"ErrDivisionByZero": reflect.ValueOf(&nodert.ErrDivisionByZero).Elem(),
		"OpEnv":             reflect.ValueOf(nodert.OpEnv),
		"OpPrint":           reflect.ValueOf(nodert.OpPrint),

		// types
		"BindFunc":  reflect.ValueOf((*nodert.BindFunc)(nil)),
		"Host":      reflect.ValueOf((*nodert.Host)(nil)),
		"NodeError": reflect.ValueOf((*nodert.NodeError)(nil)),
		"Program":   reflect.ValueOf((*nodert.Program)(nil)),
	},
}
