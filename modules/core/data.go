package core

import (
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/zclconf/go-cty/cty"
)

func constantKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindConstant,
		Description: "Produces the literal in its value setting.",
		Caps:        registry.GenericCapable,
		Ports: func(_ *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			v := n.Setting("value")
			if v == cty.NilVal || v.IsNull() {
				return nil, fmt.Errorf("constant requires a value setting")
			}
			return []*graph.Port{graph.ValueOut("value", v.Type())}, nil
		},
		Eval: func(ec registry.ExecContext) error {
			return ec.SetOutput("value", ec.Node().Setting("value"))
		},
		Emit: func(ec registry.EmitContext) error {
			lit, err := types.Literal(ec.Node().Setting("value"))
			if err != nil {
				return err
			}
			ec.SetExpr("value", lit, false)
			return nil
		},
	}
}

var mathOps = []string{"add", "sub", "mul", "div"}

func mathKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindMath,
		Description: "Applies add, sub, mul or div to two numbers. Division by zero fails.",
		Caps:        registry.Fallible,
		Ports: func(_ *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			if _, err := opSetting(n, "add", mathOps...); err != nil {
				return nil, err
			}
			return []*graph.Port{
				graph.ValueIn("a", cty.Number),
				graph.ValueIn("b", cty.Number),
				graph.ValueOut("result", cty.Number),
			}, nil
		},
		Eval: func(ec registry.ExecContext) error {
			op, _ := opSetting(ec.Node(), "add", mathOps...)
			a, err := numberIn(ec, "a")
			if err != nil {
				return err
			}
			b, err := numberIn(ec, "b")
			if err != nil {
				return err
			}
			var r float64
			switch op {
			case "add":
				r = a + b
			case "sub":
				r = a - b
			case "mul":
				r = a * b
			case "div":
				if r, err = nodert.Div(a, b); err != nil {
					return err
				}
			}
			return setNumber(ec, "result", r)
		},
		Emit: func(ec registry.EmitContext) error {
			op, _ := opSetting(ec.Node(), "add", mathOps...)
			in, err := inputs(ec, "a", "b")
			if err != nil {
				return err
			}
			switch op {
			case "add":
				ec.SetExpr("result", paren(in[0]+" + "+in[1]), false)
			case "sub":
				ec.SetExpr("result", paren(in[0]+" - "+in[1]), false)
			case "mul":
				ec.SetExpr("result", paren(in[0]+" * "+in[1]), false)
			case "div":
				ec.SetExpr("result", fmt.Sprintf("nodert.Div(%s, %s)", in[0], in[1]), true)
			}
			return nil
		},
	}
}

var compareOps = map[string]string{"eq": "==", "ne": "!=", "lt": "<", "le": "<=", "gt": ">", "ge": ">="}

func compareKind() *registry.Kind {
	names := []string{"eq", "ne", "lt", "le", "gt", "ge"}
	return &registry.Kind{
		Name:        KindCompare,
		Description: "Compares two numbers.",
		Ports: func(_ *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			if _, err := opSetting(n, "eq", names...); err != nil {
				return nil, err
			}
			return []*graph.Port{
				graph.ValueIn("a", cty.Number),
				graph.ValueIn("b", cty.Number),
				graph.ValueOut("result", cty.Bool),
			}, nil
		},
		Eval: func(ec registry.ExecContext) error {
			op, _ := opSetting(ec.Node(), "eq", names...)
			a, err := numberIn(ec, "a")
			if err != nil {
				return err
			}
			b, err := numberIn(ec, "b")
			if err != nil {
				return err
			}
			r, err := nodert.Compare(op, a, b)
			if err != nil {
				return err
			}
			return ec.SetOutput("result", cty.BoolVal(r))
		},
		Emit: func(ec registry.EmitContext) error {
			op, _ := opSetting(ec.Node(), "eq", names...)
			in, err := inputs(ec, "a", "b")
			if err != nil {
				return err
			}
			ec.SetExpr("result", paren(in[0]+" "+compareOps[op]+" "+in[1]), false)
			return nil
		},
	}
}

func logicKind() *registry.Kind {
	names := []string{"and", "or"}
	return &registry.Kind{
		Name:        KindLogic,
		Description: "Combines two bools with and/or. Both inputs are always evaluated.",
		Ports: func(_ *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			if _, err := opSetting(n, "and", names...); err != nil {
				return nil, err
			}
			return []*graph.Port{
				graph.ValueIn("a", cty.Bool),
				graph.ValueIn("b", cty.Bool),
				graph.ValueOut("result", cty.Bool),
			}, nil
		},
		Eval: func(ec registry.ExecContext) error {
			op, _ := opSetting(ec.Node(), "and", names...)
			a, err := boolIn(ec, "a")
			if err != nil {
				return err
			}
			b, err := boolIn(ec, "b")
			if err != nil {
				return err
			}
			r := nodert.And(a, b)
			if op == "or" {
				r = nodert.Or(a, b)
			}
			return ec.SetOutput("result", cty.BoolVal(r))
		},
		Emit: func(ec registry.EmitContext) error {
			op, _ := opSetting(ec.Node(), "and", names...)
			in, err := inputs(ec, "a", "b")
			if err != nil {
				return err
			}
			fn := "nodert.And"
			if op == "or" {
				fn = "nodert.Or"
			}
			ec.SetExpr("result", fmt.Sprintf("%s(%s, %s)", fn, in[0], in[1]), false)
			return nil
		},
	}
}

func notKind() *registry.Kind {
	return &registry.Kind{
		Name:  KindNot,
		Ports: registry.Static(graph.ValueIn("in", cty.Bool), graph.ValueOut("out", cty.Bool)),
		Eval: func(ec registry.ExecContext) error {
			b, err := boolIn(ec, "in")
			if err != nil {
				return err
			}
			return ec.SetOutput("out", cty.BoolVal(!b))
		},
		Emit: func(ec registry.EmitContext) error {
			in, err := ec.Input("in")
			if err != nil {
				return err
			}
			ec.SetExpr("out", "!"+paren(in), false)
			return nil
		},
	}
}

func concatKind() *registry.Kind {
	return &registry.Kind{
		Name: KindConcat,
		Ports: registry.Static(
			graph.ValueIn("a", cty.String),
			graph.ValueIn("b", cty.String),
			graph.ValueOut("result", cty.String),
		),
		Eval: func(ec registry.ExecContext) error {
			a, err := stringIn(ec, "a")
			if err != nil {
				return err
			}
			b, err := stringIn(ec, "b")
			if err != nil {
				return err
			}
			return ec.SetOutput("result", cty.StringVal(nodert.Concat(a, b)))
		},
		Emit: func(ec registry.EmitContext) error {
			in, err := inputs(ec, "a", "b")
			if err != nil {
				return err
			}
			ec.SetExpr("result", fmt.Sprintf("nodert.Concat(%s, %s)", in[0], in[1]), false)
			return nil
		},
	}
}

func rerouteKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindReroute,
		Description: "Passes its input through unchanged. Used to tidy up wires.",
		Caps:        registry.GenericCapable,
		Ports: func(_ *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			t, err := typeSetting(n)
			if err != nil {
				return nil, err
			}
			return []*graph.Port{graph.ValueIn("in", t), graph.ValueOut("out", t)}, nil
		},
		Eval: func(ec registry.ExecContext) error {
			v, err := ec.Input("in")
			if err != nil {
				return err
			}
			return ec.SetOutput("out", v)
		},
		Emit: func(ec registry.EmitContext) error {
			in, err := ec.Input("in")
			if err != nil {
				return err
			}
			ec.SetExpr("out", in, false)
			return nil
		},
	}
}
