package testutil

import (
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/specialistvlad/nodegraph/modules/core"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// T is the part of testing.TB the helpers need. *rapid.T satisfies it too.
type T interface {
	require.TestingT
	Helper()
}

// Builder creates graphs in tests, failing the test on any error.
type Builder struct {
	t T
	G *graph.Graph
	// Parent is the element new nodes are added under. It defaults to the
	// root.
	Parent nodeid.ID
}

// NewBuilder creates an empty graph over kinds.
func NewBuilder(t T, kinds graph.Kinds, name string) *Builder {
	t.Helper()
	g := graph.New(name, kinds)
	return &Builder{t: t, G: g, Parent: g.Root()}
}

// Settings turns alternating name/value pairs into node settings. Values
// are Go natives or cty.Values.
func Settings(t T, kv ...any) map[string]cty.Value {
	t.Helper()
	require.True(t, len(kv)%2 == 0, "settings need name/value pairs")
	out := make(map[string]cty.Value, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		require.True(t, ok, "setting name must be a string")
		out[name] = Value(t, kv[i+1])
	}
	return out
}

// Value converts a Go native or passes a cty.Value through.
func Value(t T, v any) cty.Value {
	t.Helper()
	if cv, ok := v.(cty.Value); ok {
		return cv
	}
	cv, err := types.FromNative(v)
	require.NoError(t, err)
	return cv
}

// Add creates a node of kind under the builder's parent.
func (b *Builder) Add(kind string, kv ...any) nodeid.ID {
	b.t.Helper()
	n, err := b.G.AddNode(b.Parent, graph.NodeSpec{Kind: kind, Settings: Settings(b.t, kv...)})
	require.NoError(b.t, err)
	return n.ID
}

// Connect wires from.fromPort to to.toPort.
func (b *Builder) Connect(from nodeid.ID, fromPort string, to nodeid.ID, toPort string) *graph.Connection {
	b.t.Helper()
	c, err := b.G.Connect(nodeid.Ref(from, fromPort), nodeid.Ref(to, toPort))
	require.NoError(b.t, err)
	return c
}

// Flow wires the out port of each node to the in port of the next.
func (b *Builder) Flow(ids ...nodeid.ID) {
	b.t.Helper()
	for i := 1; i < len(ids); i++ {
		b.Connect(ids[i-1], "out", ids[i], "in")
	}
}

// Input sets an inline literal on an unconnected value input.
func (b *Builder) Input(id nodeid.ID, port string, v any) {
	b.t.Helper()
	require.NoError(b.t, b.G.SetInput(id, port, Value(b.t, v)))
}

// Const adds a constant node and returns its id.
func (b *Builder) Const(v any) nodeid.ID {
	b.t.Helper()
	return b.Add(core.KindConstant, "value", v)
}

// Event adds an entry node for event.
func (b *Builder) Event(event string) nodeid.ID {
	b.t.Helper()
	return b.Add(core.KindEvent, "event", event)
}

// Variable declares a variable with a default.
func (b *Builder) Variable(name string, t cty.Type, def any) {
	b.t.Helper()
	v := cty.NilVal
	if def != nil {
		v = Value(b.t, def)
	}
	_, err := b.G.AddVariable(graph.Variable{Name: name, Type: t, Default: v})
	require.NoError(b.t, err)
}

// Property declares a property with a default.
func (b *Builder) Property(name string, t cty.Type, def any, modifiers ...string) {
	b.t.Helper()
	v := cty.NilVal
	if def != nil {
		v = Value(b.t, def)
	}
	_, err := b.G.AddProperty(graph.Property{Name: name, Type: t, Default: v, Modifiers: modifiers})
	require.NoError(b.t, err)
}

// Function declares a function with its entry node and returns a builder
// scoped to the body together with the entry id.
func (b *Builder) Function(name string, params []graph.Param, returns cty.Type) (*Builder, nodeid.ID) {
	b.t.Helper()
	f, err := b.G.AddFunction(name, params, returns)
	require.NoError(b.t, err)
	body := &Builder{t: b.t, G: b.G, Parent: f.Body}
	return body, body.Add(core.KindEntry, "function", name)
}

// Constructor declares a constructor with its entry node.
func (b *Builder) Constructor(name string) (*Builder, nodeid.ID) {
	b.t.Helper()
	c, err := b.G.AddConstructor(name)
	require.NoError(b.t, err)
	body := &Builder{t: b.t, G: b.G, Parent: c.Body}
	return body, body.Add(core.KindEntry, "function", name)
}
