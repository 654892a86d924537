package graph

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// testKinds is a small kind catalog so the graph can be tested without the
// registry.
type testKinds struct{}

func (testKinds) Ports(g *Graph, n *Node) ([]*Port, error) {
	switch n.Kind {
	case "num":
		return []*Port{ValueOut("value", cty.Number)}, nil
	case "str":
		return []*Port{ValueOut("value", cty.String)}, nil
	case "flag":
		return []*Port{ValueOut("value", cty.Bool)}, nil
	case "add":
		return []*Port{ValueIn("a", cty.Number), ValueIn("b", cty.Number), ValueOut("result", cty.Number)}, nil
	case "sink":
		return []*Port{FlowIn("in"), FlowOut("out"), ValueIn("text", cty.String), ValueIn("count", cty.Number)}, nil
	case "start":
		return []*Port{FlowOut("out")}, nil
	case "to_string":
		return []*Port{ValueIn("in", cty.Number), ValueOut("out", cty.String)}, nil
	case "get":
		t, ok := g.StateType(n.SettingString("member"))
		if !ok {
			return nil, fmt.Errorf("unknown member %q", n.SettingString("member"))
		}
		return []*Port{ValueOut("value", t)}, nil
	case FunctionEntryKind:
		return []*Port{FlowOut("out")}, nil
	case "call":
		if g.Function(n.SettingString("function")) == nil {
			return nil, fmt.Errorf("unknown function %q", n.SettingString("function"))
		}
		return []*Port{FlowIn("in"), FlowOut("out")}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", n.Kind)
	}
}

func (testKinds) Converter(from, to cty.Type) (NodeSpec, bool) {
	if from.Equals(cty.Number) && to.Equals(cty.String) {
		return NodeSpec{Kind: "to_string"}, true
	}
	return NodeSpec{}, false
}

// boolAddKinds declares add over booleans, so number edges into it that are
// valid in a testKinds graph are not valid here.
type boolAddKinds struct{ testKinds }

func (k boolAddKinds) Ports(g *Graph, n *Node) ([]*Port, error) {
	if n.Kind == "add" {
		return []*Port{ValueIn("a", cty.Bool), ValueIn("b", cty.Bool), ValueOut("result", cty.Bool)}, nil
	}
	return k.testKinds.Ports(g, n)
}

// failingConverterKinds answers the first port lookup of a converter and
// fails every later one.
type failingConverterKinds struct {
	testKinds
	calls *int
}

func (k failingConverterKinds) Ports(g *Graph, n *Node) ([]*Port, error) {
	if n.Kind == "to_string" {
		*k.calls++
		if *k.calls > 1 {
			return nil, fmt.Errorf("converter unavailable")
		}
	}
	return k.testKinds.Ports(g, n)
}
