package env_vars

import (
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/zclconf/go-cty/cty"
)

// KindGet reads one host environment value.
const KindGet = "env.get"

// Module implements the registry.Module interface for this package.
type Module struct{}

func variableName(n *graph.Node) (string, error) {
	name := n.SettingString("name")
	if name == "" {
		return "", fmt.Errorf("env.get requires a name setting")
	}
	return name, nil
}

// Register registers the env.get kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(&registry.Kind{
		Name:        KindGet,
		Description: "Reads an environment value from the host. Unset names read as an empty string.",
		Caps:        registry.Impure | registry.Fallible,
		Ports: func(_ *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			if _, err := variableName(n); err != nil {
				return nil, err
			}
			return []*graph.Port{graph.ValueOut("value", cty.String)}, nil
		},
		Eval: func(ec registry.ExecContext) error {
			name, err := variableName(ec.Node())
			if err != nil {
				return err
			}
			v, err := nodert.Env(ec.Host(), name)
			if err != nil {
				return err
			}
			return ec.SetOutput("value", cty.StringVal(v))
		},
		Emit: func(ec registry.EmitContext) error {
			name, err := variableName(ec.Node())
			if err != nil {
				return err
			}
			ec.SetExpr("value", fmt.Sprintf("nodert.Env(%s, %q)", ec.Host(), name), true)
			return nil
		},
	})
}
