package print

import (
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/zclconf/go-cty/cty"
)

// KindPrint writes its value to the host's output.
const KindPrint = "core.print"

// Module implements the registry.Module interface for this package.
type Module struct{}

func exec(ec registry.ExecContext) ([]string, error) {
	v, err := ec.Input("value")
	if err != nil {
		return nil, err
	}
	native, err := types.ToNative(v)
	if err != nil {
		return nil, err
	}
	ec.Logger().Debug("Printing value.", "value", native)
	if err := nodert.Print(ec.Host(), native); err != nil {
		return nil, err
	}
	return []string{"out"}, nil
}

func emit(ec registry.EmitContext) error {
	v, err := ec.Input("value")
	if err != nil {
		return err
	}
	ec.Check(fmt.Sprintf("nodert.Print(%s, %s)", ec.Host(), v))
	return ec.Flow("out")
}

// Register registers the print kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(&registry.Kind{
		Name:        KindPrint,
		Description: "Prints its value through the host and continues.",
		Caps:        registry.HasFlowInput | registry.HasFlowOutput | registry.Fallible,
		Ports: registry.Static(
			graph.FlowIn("in"),
			graph.ValueIn("value", cty.DynamicPseudoType).WithDefault(cty.StringVal("")),
			graph.FlowOut("out"),
		),
		Exec: exec,
		Emit: emit,
	})
}
