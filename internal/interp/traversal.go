package interp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/nodegraph/internal/ctxlog"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/instance"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

// Continuation is a suspended traversal: the frame to resume and the flow
// output to continue from.
type Continuation struct {
	Frame *instance.Frame
	Port  nodeid.PortRef
	// State is kind specific resume data.
	State cty.Value
}

type traversal struct {
	it     *Interpreter
	ctx    context.Context
	logger *slog.Logger
	inst   *instance.Instance
	g      *graph.Graph
	frame  *instance.Frame
	// volatile memoizes whether a data node must be re-evaluated on every
	// pull.
	volatile map[nodeid.ID]bool
}

func (it *Interpreter) newTraversal(ctx context.Context, inst *instance.Instance, frame *instance.Frame) *traversal {
	return &traversal{
		it:       it,
		ctx:      ctx,
		logger:   ctxlog.FromContext(ctx),
		inst:     inst,
		g:        inst.Graph,
		frame:    frame,
		volatile: make(map[nodeid.ID]bool),
	}
}

// follow runs the chains connected to a flow output, in registration order.
func (t *traversal) follow(ref nodeid.PortRef) error {
	for _, c := range t.g.Outgoing(ref) {
		if t.frame.Returned {
			return nil
		}
		if err := t.exec(c.To.Node); err != nil {
			return err
		}
	}
	return nil
}

// exec runs a flow node and then the chains behind the outputs it returns.
func (t *traversal) exec(id nodeid.ID) error {
	n, ok := t.g.Node(id)
	if !ok {
		return fmt.Errorf("node %s not found", id)
	}
	k, err := t.it.reg.KindOf(n)
	if err != nil {
		return wrap(t.g.ID, id, n.Kind, err)
	}
	if err := t.ctx.Err(); err != nil {
		return wrap(t.g.ID, id, n.Kind, err)
	}
	if steps := t.frame.Visit(id); steps > t.it.maxSteps {
		return wrap(t.g.ID, id, n.Kind, ErrMaxSteps)
	}
	if k.Exec == nil {
		return wrap(t.g.ID, id, n.Kind, fmt.Errorf("kind %s cannot be executed", n.Kind))
	}

	t.logger.Debug("Executing node.", "graph", t.g.Name, "nodeID", id, "kind", n.Kind, "frame", t.frame.ID)
	ec := &execContext{t: t, node: n, kind: k}
	var outs []string
	err = protect(func() error {
		var err error
		outs, err = k.Exec(ec)
		return err
	})
	if err != nil {
		t.logger.Debug("Node execution failed.", "nodeID", id, "error", err)
		return wrap(t.g.ID, id, n.Kind, err)
	}

	for _, out := range outs {
		if t.frame.Returned {
			break
		}
		if err := t.follow(nodeid.Ref(id, out)); err != nil {
			return err
		}
	}
	return nil
}

// value resolves an output port to a value.
func (t *traversal) value(ref nodeid.PortRef) (cty.Value, error) {
	n, ok := t.g.Node(ref.Node)
	if !ok {
		return cty.NilVal, fmt.Errorf("producer %s not found", ref)
	}
	p := n.Port(ref.Port)
	if p == nil {
		return cty.NilVal, fmt.Errorf("producer port %s not found", ref)
	}
	k, err := t.it.reg.KindOf(n)
	if err != nil {
		return cty.NilVal, err
	}

	if k.IsFlow() {
		if v, ok := t.frame.Slot(ref); ok {
			return v, nil
		}
		return types.Zero(p.Type), nil
	}

	volatile := t.isVolatile(n.ID)
	if !volatile {
		if v, ok := t.frame.Cached(ref); ok {
			return v, nil
		}
	}
	if k.Eval == nil {
		return cty.NilVal, wrap(t.g.ID, n.ID, n.Kind, fmt.Errorf("kind %s cannot be evaluated", n.Kind))
	}

	ec := &execContext{t: t, node: n, kind: k, outputs: make(map[string]cty.Value)}
	if err := protect(func() error { return k.Eval(ec) }); err != nil {
		return cty.NilVal, wrap(t.g.ID, n.ID, n.Kind, err)
	}
	v, ok := ec.outputs[ref.Port]
	if !ok {
		return cty.NilVal, wrap(t.g.ID, n.ID, n.Kind, fmt.Errorf("output %q was not produced", ref.Port))
	}
	if !volatile {
		for port, out := range ec.outputs {
			t.frame.Cache(nodeid.Ref(n.ID, port), out)
		}
	}
	return v, nil
}

// isVolatile reports whether a data node is impure or reads from an impure
// producer.
func (t *traversal) isVolatile(id nodeid.ID) bool {
	if v, ok := t.volatile[id]; ok {
		return v
	}
	// Provisional entry; value cycles are rejected by Validate.
	t.volatile[id] = false
	n, _ := t.g.Node(id)
	result := false
	if k, ok := t.it.reg.Kind(n.Kind); ok && k.Caps.Has(registry.Impure) {
		result = true
	} else {
		for _, p := range n.PortsOf(graph.Input, graph.Value) {
			c, ok := t.g.Producer(p.Ref())
			if !ok {
				continue
			}
			pn, _ := t.g.Node(c.From.Node)
			pk, ok := t.it.reg.Kind(pn.Kind)
			if ok && !pk.IsFlow() && t.isVolatile(pn.ID) {
				result = true
				break
			}
		}
	}
	t.volatile[id] = result
	return result
}

// downstream collects the data nodes that read, directly or transitively,
// from the outputs of id.
func (t *traversal) downstream(id nodeid.ID) map[nodeid.ID]bool {
	out := map[nodeid.ID]bool{}
	stack := []nodeid.ID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range t.g.Connections() {
			if c.Channel != graph.Value || c.From.Node != cur || out[c.To.Node] {
				continue
			}
			n, ok := t.g.Node(c.To.Node)
			if !ok {
				continue
			}
			if k, ok := t.it.reg.Kind(n.Kind); ok && !k.IsFlow() {
				out[n.ID] = true
				stack = append(stack, n.ID)
			}
		}
	}
	return out
}

func (t *traversal) call(function string, args []cty.Value) (cty.Value, error) {
	f := t.g.Function(function)
	if f == nil {
		return cty.NilVal, fmt.Errorf("unknown function %q", function)
	}
	if len(args) != len(f.Params) {
		return cty.NilVal, fmt.Errorf("function %q takes %d arguments, got %d", function, len(f.Params), len(args))
	}
	entry, err := t.g.FunctionEntry(f)
	if err != nil {
		return cty.NilVal, err
	}
	if t.frame != nil && t.frame.Depth+1 > t.it.maxCallDepth {
		return cty.NilVal, ErrMaxCallDepth
	}

	frame := t.inst.NewFrame(entry.ID, f.Name, t.frame)
	for i, p := range f.Params {
		v, err := types.Coerce(args[i], p.Type)
		if err != nil {
			t.inst.Release(frame)
			return cty.NilVal, fmt.Errorf("argument %q: %w", p.Name, err)
		}
		frame.Params[p.Name] = v
	}

	sub := t.it.newTraversal(t.ctx, t.inst, frame)
	err = sub.exec(entry.ID)
	t.it.finish(t.inst, frame)
	if err != nil {
		return cty.NilVal, err
	}
	if f.Returns == cty.NilType {
		return cty.NilVal, nil
	}
	if frame.Result == cty.NilVal {
		return types.Zero(f.Returns), nil
	}
	return frame.Result, nil
}

// resume continues a suspended traversal.
func (t *traversal) resume(c Continuation) error {
	c.Frame.Pending--
	defer t.it.finish(t.inst, c.Frame)
	if t.inst.Destroyed() {
		return nil
	}
	t.logger.Debug("Resuming traversal.", "graph", t.g.Name, "frame", c.Frame.ID, "port", c.Port.String())
	return t.it.report(t.ctx, t.follow(c.Port))
}
