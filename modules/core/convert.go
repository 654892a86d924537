package core

import (
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/zclconf/go-cty/cty"
)

const convertCaps = registry.AutoConvert

func toStringKind() *registry.Kind {
	return &registry.Kind{
		Name:  KindToString,
		Caps:  convertCaps,
		Ports: registry.Static(graph.ValueIn("in", cty.DynamicPseudoType), graph.ValueOut("out", cty.String)),
		Eval: func(ec registry.ExecContext) error {
			v, err := nativeIn(ec, "in")
			if err != nil {
				return err
			}
			return ec.SetOutput("out", cty.StringVal(nodert.ToString(v)))
		},
		Emit: func(ec registry.EmitContext) error {
			in, err := ec.Input("in")
			if err != nil {
				return err
			}
			ec.SetExpr("out", fmt.Sprintf("nodert.ToString(%s)", in), false)
			return nil
		},
	}
}

func parseNumberKind() *registry.Kind {
	return &registry.Kind{
		Name:  KindParseNumber,
		Caps:  convertCaps | registry.Fallible,
		Ports: registry.Static(graph.ValueIn("in", cty.String), graph.ValueOut("out", cty.Number)),
		Eval: func(ec registry.ExecContext) error {
			s, err := stringIn(ec, "in")
			if err != nil {
				return err
			}
			f, err := nodert.ParseNumber(s)
			if err != nil {
				return err
			}
			return setNumber(ec, "out", f)
		},
		Emit: func(ec registry.EmitContext) error {
			in, err := ec.Input("in")
			if err != nil {
				return err
			}
			ec.SetExpr("out", fmt.Sprintf("nodert.ParseNumber(%s)", in), true)
			return nil
		},
	}
}

func parseBoolKind() *registry.Kind {
	return &registry.Kind{
		Name:  KindParseBool,
		Caps:  convertCaps | registry.Fallible,
		Ports: registry.Static(graph.ValueIn("in", cty.String), graph.ValueOut("out", cty.Bool)),
		Eval: func(ec registry.ExecContext) error {
			s, err := stringIn(ec, "in")
			if err != nil {
				return err
			}
			b, err := nodert.ParseBool(s)
			if err != nil {
				return err
			}
			return ec.SetOutput("out", cty.BoolVal(b))
		},
		Emit: func(ec registry.EmitContext) error {
			in, err := ec.Input("in")
			if err != nil {
				return err
			}
			ec.SetExpr("out", fmt.Sprintf("nodert.ParseBool(%s)", in), true)
			return nil
		},
	}
}

// castTarget returns the primitive type named by the type setting.
func castTarget(n *graph.Node) (cty.Type, error) {
	t, err := typeSetting(n)
	if err != nil {
		return cty.NilType, err
	}
	switch {
	case t.Equals(cty.String), t.Equals(cty.Number), t.Equals(cty.Bool):
		return t, nil
	default:
		return cty.NilType, fmt.Errorf("cast target must be string, number or bool")
	}
}

func castKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindCast,
		Description: "Narrows an any value to a primitive type, failing when the dynamic type differs.",
		Caps:        convertCaps | registry.Fallible | registry.GenericCapable,
		Ports: func(_ *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			t, err := castTarget(n)
			if err != nil {
				return nil, err
			}
			return []*graph.Port{graph.ValueIn("in", cty.DynamicPseudoType), graph.ValueOut("out", t)}, nil
		},
		Eval: func(ec registry.ExecContext) error {
			t, err := castTarget(ec.Node())
			if err != nil {
				return err
			}
			v, err := nativeIn(ec, "in")
			if err != nil {
				return err
			}
			switch {
			case t.Equals(cty.String):
				s, err := nodert.AsString(v)
				if err != nil {
					return err
				}
				return ec.SetOutput("out", cty.StringVal(s))
			case t.Equals(cty.Number):
				f, err := nodert.AsNumber(v)
				if err != nil {
					return err
				}
				return setNumber(ec, "out", f)
			default:
				b, err := nodert.AsBool(v)
				if err != nil {
					return err
				}
				return ec.SetOutput("out", cty.BoolVal(b))
			}
		},
		Emit: func(ec registry.EmitContext) error {
			t, err := castTarget(ec.Node())
			if err != nil {
				return err
			}
			in, err := ec.Input("in")
			if err != nil {
				return err
			}
			fn := "nodert.AsBool"
			switch {
			case t.Equals(cty.String):
				fn = "nodert.AsString"
			case t.Equals(cty.Number):
				fn = "nodert.AsNumber"
			}
			ec.SetExpr("out", fmt.Sprintf("%s(%s)", fn, in), true)
			return nil
		},
	}
}
