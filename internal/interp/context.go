package interp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/zclconf/go-cty/cty"
)

// execContext implements registry.ExecContext for one node run. Data nodes
// write their outputs into outputs; flow nodes write into frame slots.
type execContext struct {
	t       *traversal
	node    *graph.Node
	kind    *registry.Kind
	outputs map[string]cty.Value
}

var _ registry.ExecContext = (*execContext)(nil)

func (ec *execContext) Context() context.Context { return ec.t.ctx }

func (ec *execContext) Logger() *slog.Logger {
	return ec.t.logger.With("nodeID", ec.node.ID, "kind", ec.node.Kind)
}

func (ec *execContext) Graph() *graph.Graph { return ec.t.g }
func (ec *execContext) Node() *graph.Node   { return ec.node }
func (ec *execContext) Host() nodert.Host   { return ec.t.inst.Host }

func (ec *execContext) Input(port string) (cty.Value, error) {
	p := ec.node.Port(port)
	if p == nil || p.Direction != graph.Input || p.Channel != graph.Value {
		return cty.NilVal, fmt.Errorf("node has no value input %q", port)
	}
	if c, ok := ec.t.g.Producer(p.Ref()); ok {
		return ec.t.value(c.From)
	}
	if v, ok := ec.node.Inputs[port]; ok {
		return v, nil
	}
	if p.Default != cty.NilVal {
		return p.Default, nil
	}
	return types.Zero(p.Type), nil
}

func (ec *execContext) SetOutput(port string, v cty.Value) error {
	p := ec.node.Port(port)
	if p == nil || p.Direction != graph.Output || p.Channel != graph.Value {
		return fmt.Errorf("node has no value output %q", port)
	}
	if ec.outputs != nil {
		ec.outputs[port] = v
		return nil
	}
	ec.t.frame.SetSlot(p.Ref(), v)
	ec.t.frame.Evict(ec.t.downstream(ec.node.ID))
	return nil
}

func (ec *execContext) Fire(port string) error {
	t := ec.t
	if err := t.ctx.Err(); err != nil {
		return err
	}
	// Each firing counts as a step so loops with empty bodies stay bounded.
	if steps := t.frame.Visit(ec.node.ID); steps > t.it.maxSteps {
		return ErrMaxSteps
	}
	return t.follow(nodeid.Ref(ec.node.ID, port))
}

func (ec *execContext) Done() bool { return ec.t.frame.Returned }

func (ec *execContext) State(name string) (cty.Value, error) {
	return ec.t.inst.Get(name)
}

func (ec *execContext) SetState(name string, v cty.Value) error {
	if p := ec.t.g.Property(name); p != nil && p.ReadOnly() {
		return fmt.Errorf("property %q is read-only", name)
	}
	return ec.t.inst.Set(name, v)
}

func (ec *execContext) Call(function string, args []cty.Value) (cty.Value, error) {
	return ec.t.call(function, args)
}

func (ec *execContext) Param(name string) (cty.Value, error) {
	v, ok := ec.t.frame.Params[name]
	if !ok {
		return cty.NilVal, fmt.Errorf("no parameter named %q", name)
	}
	return v, nil
}

func (ec *execContext) Return(v cty.Value) error {
	if ec.t.frame.Function == "" {
		return fmt.Errorf("return outside of a function body")
	}
	ec.t.frame.Returned = true
	ec.t.frame.Result = v
	return nil
}

func (ec *execContext) Suspend(ticks int, port string) error {
	t := ec.t
	if t.frame.Function != "" {
		return fmt.Errorf("cannot suspend inside function or constructor %q", t.frame.Function)
	}
	if p := ec.node.Port(port); p == nil || p.Channel != graph.Flow || p.Direction != graph.Output {
		return fmt.Errorf("node has no flow output %q", port)
	}
	c := Continuation{Frame: t.frame, Port: nodeid.Ref(ec.node.ID, port), State: cty.NumberIntVal(int64(ticks))}
	t.frame.Pending++
	resumeCtx := context.WithoutCancel(t.ctx)
	nodert.After(t.inst.Host, ticks, func() error {
		rt := t.it.newTraversal(resumeCtx, t.inst, c.Frame)
		return rt.resume(c)
	})
	return nil
}
