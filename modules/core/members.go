package core

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// reservedPorts cannot be used as parameter names because call and entry
// nodes already define them.
var reservedPorts = map[string]bool{"in": true, "out": true, "result": true}

func memberName(n *graph.Node) (string, error) {
	name := n.SettingString("member")
	if name == "" {
		return "", fmt.Errorf("a member setting is required")
	}
	return name, nil
}

func stateType(g *graph.Graph, n *graph.Node) (cty.Type, string, error) {
	name, err := memberName(n)
	if err != nil {
		return cty.NilType, "", err
	}
	t, ok := g.StateType(name)
	if !ok {
		return cty.NilType, "", fmt.Errorf("no variable or property named %q", name)
	}
	return t, name, nil
}

func getKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindGet,
		Description: "Reads a variable or property.",
		Caps:        registry.Impure | registry.GenericCapable,
		Ports: func(g *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			t, _, err := stateType(g, n)
			if err != nil {
				return nil, err
			}
			return []*graph.Port{graph.ValueOut("value", t)}, nil
		},
		Eval: func(ec registry.ExecContext) error {
			name, err := memberName(ec.Node())
			if err != nil {
				return err
			}
			v, err := ec.State(name)
			if err != nil {
				return err
			}
			return ec.SetOutput("value", v)
		},
		Emit: func(ec registry.EmitContext) error {
			name, err := memberName(ec.Node())
			if err != nil {
				return err
			}
			m, err := ec.Member(name)
			if err != nil {
				return err
			}
			ec.SetExpr("value", m, false)
			return nil
		},
	}
}

func setKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindSet,
		Description: "Writes a variable or a writable property.",
		Caps:        flowCaps | registry.GenericCapable,
		Ports: func(g *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			t, name, err := stateType(g, n)
			if err != nil {
				return nil, err
			}
			if p := g.Property(name); p != nil && p.ReadOnly() {
				return nil, fmt.Errorf("property %q is read-only", name)
			}
			return []*graph.Port{graph.FlowIn("in"), graph.ValueIn("value", t), graph.FlowOut("out")}, nil
		},
		Exec: func(ec registry.ExecContext) ([]string, error) {
			name, err := memberName(ec.Node())
			if err != nil {
				return nil, err
			}
			v, err := ec.Input("value")
			if err != nil {
				return nil, err
			}
			if err := ec.SetState(name, v); err != nil {
				return nil, err
			}
			return []string{"out"}, nil
		},
		Emit: func(ec registry.EmitContext) error {
			name, err := memberName(ec.Node())
			if err != nil {
				return err
			}
			m, err := ec.Member(name)
			if err != nil {
				return err
			}
			v, err := ec.Input("value")
			if err != nil {
				return err
			}
			ec.Line("%s = %s", m, v)
			return ec.Flow("out")
		},
	}
}

// signature resolves the function setting. Constructors have no parameters
// and no result.
func signature(g *graph.Graph, n *graph.Node, allowConstructor bool) (*graph.Function, error) {
	name := n.SettingString("function")
	if name == "" {
		return nil, fmt.Errorf("a function setting is required")
	}
	if f := g.Function(name); f != nil {
		for _, p := range f.Params {
			if reservedPorts[p.Name] {
				return nil, fmt.Errorf("function %q: parameter name %q is reserved", name, p.Name)
			}
		}
		return f, nil
	}
	if c := g.Constructor(name); c != nil && allowConstructor {
		return &graph.Function{Name: c.Name, Returns: cty.NilType, Body: c.Body}, nil
	}
	return nil, fmt.Errorf("no function named %q", name)
}

func entryKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindEntry,
		Description: "Start of a function or constructor body; exposes the arguments.",
		Caps:        registry.HasFlowOutput | registry.GenericCapable,
		Ports: func(g *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			f, err := signature(g, n, true)
			if err != nil {
				return nil, err
			}
			ports := []*graph.Port{graph.FlowOut("out")}
			for _, p := range f.Params {
				ports = append(ports, graph.ValueOut(p.Name, p.Type))
			}
			return ports, nil
		},
		Exec: func(ec registry.ExecContext) ([]string, error) {
			for _, p := range ec.Node().PortsOf(graph.Output, graph.Value) {
				v, err := ec.Param(p.Name)
				if err != nil {
					return nil, err
				}
				if err := ec.SetOutput(p.Name, v); err != nil {
					return nil, err
				}
			}
			return []string{"out"}, nil
		},
		Emit: func(ec registry.EmitContext) error {
			for _, p := range ec.Node().PortsOf(graph.Output, graph.Value) {
				arg, err := ec.Param(p.Name)
				if err != nil {
					return err
				}
				ec.Line("%s = %s", ec.Output(p.Name), arg)
			}
			return ec.Flow("out")
		},
	}
}

func returnKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindReturn,
		Description: "Ends a function body, with a value when the function has a result.",
		Caps:        registry.HasFlowInput | registry.GenericCapable,
		Ports: func(g *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			f, err := signature(g, n, false)
			if err != nil {
				return nil, err
			}
			ports := []*graph.Port{graph.FlowIn("in")}
			if f.Returns != cty.NilType {
				ports = append(ports, graph.ValueIn("value", f.Returns))
			}
			return ports, nil
		},
		Exec: func(ec registry.ExecContext) ([]string, error) {
			v := cty.NilVal
			if ec.Node().Port("value") != nil {
				var err error
				if v, err = ec.Input("value"); err != nil {
					return nil, err
				}
			}
			return nil, ec.Return(v)
		},
		Emit: func(ec registry.EmitContext) error {
			if ec.Node().Port("value") == nil {
				return ec.Return("")
			}
			v, err := ec.Input("value")
			if err != nil {
				return err
			}
			return ec.Return(v)
		},
	}
}

func callKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindCall,
		Description: "Calls a graph function and exposes its result.",
		Caps:        flowCaps | registry.GenericCapable | registry.Fallible,
		Ports: func(g *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			f, err := signature(g, n, false)
			if err != nil {
				return nil, err
			}
			ports := []*graph.Port{graph.FlowIn("in")}
			for _, p := range f.Params {
				ports = append(ports, graph.ValueIn(p.Name, p.Type))
			}
			ports = append(ports, graph.FlowOut("out"))
			if f.Returns != cty.NilType {
				ports = append(ports, graph.ValueOut("result", f.Returns))
			}
			return ports, nil
		},
		Exec: func(ec registry.ExecContext) ([]string, error) {
			n := ec.Node()
			var args []cty.Value
			for _, p := range n.PortsOf(graph.Input, graph.Value) {
				v, err := ec.Input(p.Name)
				if err != nil {
					return nil, err
				}
				args = append(args, v)
			}
			r, err := ec.Call(n.SettingString("function"), args)
			if err != nil {
				return nil, err
			}
			if n.Port("result") != nil {
				if err := ec.SetOutput("result", r); err != nil {
					return nil, err
				}
			}
			return []string{"out"}, nil
		},
		Emit: func(ec registry.EmitContext) error {
			n := ec.Node()
			fn, err := ec.Function(n.SettingString("function"))
			if err != nil {
				return err
			}
			var args []string
			for _, p := range n.PortsOf(graph.Input, graph.Value) {
				a, err := ec.Input(p.Name)
				if err != nil {
					return err
				}
				args = append(args, a)
			}
			call := fmt.Sprintf("%s(%s)", fn, strings.Join(args, ", "))
			if n.Port("result") != nil {
				ec.Assign(ec.Output("result"), call)
			} else {
				ec.Check(call)
			}
			return ec.Flow("out")
		},
	}
}
