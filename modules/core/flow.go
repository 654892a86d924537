package core

import (
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

const flowCaps = registry.HasFlowInput | registry.HasFlowOutput

func eventKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindEvent,
		Description: "Starts a traversal when the host triggers the event named in its event setting.",
		Caps:        registry.EntryPoint | registry.HasFlowOutput,
		Ports: func(_ *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			if n.SettingString("event") == "" {
				return nil, fmt.Errorf("event requires an event setting")
			}
			return []*graph.Port{graph.FlowOut("out")}, nil
		},
		Exec: func(registry.ExecContext) ([]string, error) {
			return []string{"out"}, nil
		},
		Emit: func(ec registry.EmitContext) error {
			return ec.Flow("out")
		},
	}
}

func branchKind() *registry.Kind {
	return &registry.Kind{
		Name: KindBranch,
		Caps: flowCaps,
		Ports: registry.Static(
			graph.FlowIn("in"),
			graph.ValueIn("condition", cty.Bool),
			graph.FlowOut("true"),
			graph.FlowOut("false"),
		),
		Exec: func(ec registry.ExecContext) ([]string, error) {
			c, err := boolIn(ec, "condition")
			if err != nil {
				return nil, err
			}
			if c {
				return []string{"true"}, nil
			}
			return []string{"false"}, nil
		},
		Emit: func(ec registry.EmitContext) error {
			cond, err := ec.Input("condition")
			if err != nil {
				return err
			}
			return ec.Branch(cond, "true", "false")
		},
	}
}

// sequenceOutputs returns then0..thenN-1 for the count setting.
func sequenceOutputs(n *graph.Node) ([]string, error) {
	count := n.SettingNumber("count", 2)
	if count < 1 || count > 64 || count != float64(int(count)) {
		return nil, fmt.Errorf("sequence count must be an integer between 1 and 64, got %v", count)
	}
	out := make([]string, int(count))
	for i := range out {
		out[i] = fmt.Sprintf("then%d", i)
	}
	return out, nil
}

func sequenceKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindSequence,
		Description: "Runs each of its outputs in order.",
		Caps:        flowCaps | registry.GenericCapable,
		Ports: func(_ *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			outs, err := sequenceOutputs(n)
			if err != nil {
				return nil, err
			}
			ports := []*graph.Port{graph.FlowIn("in")}
			for _, o := range outs {
				ports = append(ports, graph.FlowOut(o))
			}
			return ports, nil
		},
		Exec: func(ec registry.ExecContext) ([]string, error) {
			return sequenceOutputs(ec.Node())
		},
		Emit: func(ec registry.EmitContext) error {
			outs, err := sequenceOutputs(ec.Node())
			if err != nil {
				return err
			}
			for _, o := range outs {
				if err := ec.Flow(o); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func forKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindFor,
		Description: "Fires body once for every index from..to inclusive, then completed.",
		Caps:        flowCaps | registry.Loop,
		Ports: registry.Static(
			graph.FlowIn("in"),
			graph.ValueIn("from", cty.Number),
			graph.ValueIn("to", cty.Number),
			graph.FlowOut("body"),
			graph.FlowOut("completed"),
			graph.ValueOut("index", cty.Number),
		),
		Exec: func(ec registry.ExecContext) ([]string, error) {
			from, err := numberIn(ec, "from")
			if err != nil {
				return nil, err
			}
			to, err := numberIn(ec, "to")
			if err != nil {
				return nil, err
			}
			for i := from; i <= to; i++ {
				if err := setNumber(ec, "index", i); err != nil {
					return nil, err
				}
				if err := ec.Fire("body"); err != nil {
					return nil, err
				}
				if ec.Done() {
					return nil, nil
				}
			}
			return []string{"completed"}, nil
		},
		Emit: func(ec registry.EmitContext) error {
			in, err := inputs(ec, "from", "to")
			if err != nil {
				return err
			}
			lo, hi, i := ec.Temp("float64"), ec.Temp("float64"), ec.Temp("float64")
			ec.Line("%s, %s = %s, %s", lo, hi, in[0], in[1])
			err = ec.Block(fmt.Sprintf("for %s = %s; %s <= %s; %s++ {", i, lo, i, hi, i), func() error {
				ec.Line("%s = %s", ec.Output("index"), i)
				return ec.Flow("body")
			}, "}")
			if err != nil {
				return err
			}
			return ec.Flow("completed")
		},
	}
}

func whileKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindWhile,
		Description: "Fires body while condition holds, then completed.",
		Caps:        flowCaps | registry.Loop,
		Ports: registry.Static(
			graph.FlowIn("in"),
			graph.ValueIn("condition", cty.Bool),
			graph.FlowOut("body"),
			graph.FlowOut("completed"),
		),
		Exec: func(ec registry.ExecContext) ([]string, error) {
			for {
				c, err := boolIn(ec, "condition")
				if err != nil {
					return nil, err
				}
				if !c {
					return []string{"completed"}, nil
				}
				if err := ec.Fire("body"); err != nil {
					return nil, err
				}
				if ec.Done() {
					return nil, nil
				}
			}
		},
		Emit: func(ec registry.EmitContext) error {
			err := ec.Block("for {", func() error {
				cond, err := ec.Input("condition")
				if err != nil {
					return err
				}
				err = ec.Block(fmt.Sprintf("if !%s {", paren(cond)), func() error {
					ec.Line("break")
					return nil
				}, "}")
				if err != nil {
					return err
				}
				return ec.Flow("body")
			}, "}")
			if err != nil {
				return err
			}
			return ec.Flow("completed")
		},
	}
}

func delayTicks(n *graph.Node) (int, error) {
	ticks := n.SettingNumber("ticks", 1)
	if ticks < 0 || ticks != float64(int(ticks)) {
		return 0, fmt.Errorf("delay ticks must be a non-negative integer, got %v", ticks)
	}
	return int(ticks), nil
}

func delayKind() *registry.Kind {
	return &registry.Kind{
		Name:        KindDelay,
		Description: "Continues from out after the given number of host ticks.",
		Caps:        flowCaps | registry.CoroutineCapable,
		Ports: func(_ *graph.Graph, n *graph.Node) ([]*graph.Port, error) {
			if _, err := delayTicks(n); err != nil {
				return nil, err
			}
			return []*graph.Port{graph.FlowIn("in"), graph.FlowOut("out")}, nil
		},
		Exec: func(ec registry.ExecContext) ([]string, error) {
			ticks, err := delayTicks(ec.Node())
			if err != nil {
				return nil, err
			}
			return nil, ec.Suspend(ticks, "out")
		},
		Emit: func(ec registry.EmitContext) error {
			ticks, err := delayTicks(ec.Node())
			if err != nil {
				return err
			}
			return ec.Defer(ticks, "out")
		},
	}
}
