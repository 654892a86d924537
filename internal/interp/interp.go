package interp

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/nodegraph/internal/ctxlog"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/instance"
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/pkg/nodert"
	"github.com/zclconf/go-cty/cty"
)

// DeactivateEvent is triggered by Deactivate before the instance is
// destroyed.
const DeactivateEvent = "deactivate"

const (
	defaultMaxSteps     = 100000
	defaultMaxCallDepth = 64
)

// Interpreter executes graphs. It holds no per-graph state and may be shared.
type Interpreter struct {
	reg          *registry.Registry
	policy       ErrorPolicy
	maxSteps     int
	maxCallDepth int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithErrorPolicy sets what happens to traversal errors.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(it *Interpreter) { it.policy = p }
}

// WithMaxSteps bounds the number of flow nodes a traversal may run.
func WithMaxSteps(n int) Option {
	return func(it *Interpreter) { it.maxSteps = n }
}

// WithMaxCallDepth bounds function call nesting.
func WithMaxCallDepth(n int) Option {
	return func(it *Interpreter) { it.maxCallDepth = n }
}

// New creates an interpreter over the kinds of reg.
func New(reg *registry.Registry, opts ...Option) *Interpreter {
	it := &Interpreter{
		reg:          reg,
		maxSteps:     defaultMaxSteps,
		maxCallDepth: defaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Activate validates g, binds it to host and runs its constructors in
// declaration order.
func (it *Interpreter) Activate(ctx context.Context, g *graph.Graph, host nodert.Host) (*instance.Instance, error) {
	ctx, logger := ctxlog.WithGraph(ctx, g.ID, g.Name)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph %q is invalid: %w", g.Name, err)
	}
	inst := instance.New(g, host)
	logger.Debug("Activating graph instance.", "instance", inst.ID)

	for _, c := range g.Constructors() {
		entry, err := g.FunctionEntry(&graph.Function{Name: c.Name, Body: c.Body})
		if err != nil {
			return nil, err
		}
		frame := inst.NewFrame(entry.ID, c.Name, nil)
		t := it.newTraversal(ctx, inst, frame)
		err = t.exec(entry.ID)
		it.finish(inst, frame)
		if err != nil {
			inst.Destroy()
			return nil, fmt.Errorf("constructor %q failed: %w", c.Name, err)
		}
	}
	return inst, nil
}

// Trigger runs one traversal per entry node listening for event, in element
// order. A failing traversal does not stop the others.
func (it *Interpreter) Trigger(ctx context.Context, inst *instance.Instance, event string) error {
	if inst.Destroyed() {
		return ErrDestroyed
	}
	g := inst.Graph
	ctx, logger := ctxlog.WithGraph(ctx, g.ID, g.Name)

	var errs []error
	count := 0
	for n := range g.TopLevelNodes() {
		k, ok := it.reg.Kind(n.Kind)
		if !ok || !k.Caps.Has(registry.EntryPoint) || n.SettingString("event") != event {
			continue
		}
		count++
		frame := inst.NewFrame(n.ID, "", nil)
		t := it.newTraversal(ctx, inst, frame)
		err := t.exec(n.ID)
		it.finish(inst, frame)
		if err != nil {
			errs = append(errs, err)
		}
	}
	logger.Debug("Event triggered.", "event", event, "entries", count, "failed", len(errs))
	return it.report(ctx, errors.Join(errs...))
}

// Call runs a graph function with args and returns its result, or cty.NilVal
// for functions without one.
func (it *Interpreter) Call(ctx context.Context, inst *instance.Instance, function string, args []cty.Value) (cty.Value, error) {
	if inst.Destroyed() {
		return cty.NilVal, ErrDestroyed
	}
	t := it.newTraversal(ctx, inst, nil)
	v, err := t.call(function, args)
	return v, it.report(ctx, err)
}

// Deactivate fires the deactivate event and destroys the instance.
func (it *Interpreter) Deactivate(ctx context.Context, inst *instance.Instance) error {
	if inst.Destroyed() {
		return ErrDestroyed
	}
	err := it.Trigger(ctx, inst, DeactivateEvent)
	inst.Destroy()
	ctxlog.FromContext(ctx).Debug("Graph instance deactivated.", "graph", inst.Graph.Name, "instance", inst.ID)
	return err
}

func (it *Interpreter) report(ctx context.Context, err error) error {
	if err == nil || it.policy == PolicyReturn {
		return err
	}
	ctxlog.FromContext(ctx).Error("Graph traversal failed.", "error", err)
	return nil
}

func (it *Interpreter) finish(inst *instance.Instance, frame *instance.Frame) {
	if frame.Pending == 0 {
		inst.Release(frame)
	}
}
