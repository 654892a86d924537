package graph

import (
	"errors"
	"testing"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return New("Test", testKinds{})
}

func addNode(t *testing.T, g *Graph, kind string) *Node {
	t.Helper()
	n, err := g.AddNode(g.Root(), NodeSpec{Kind: kind})
	require.NoError(t, err)
	return n
}

// snapshot captures everything Connect could change.
type snapshot struct {
	elements int
	conns    []Connection
}

func take(g *Graph) snapshot {
	s := snapshot{elements: g.Len()}
	for _, c := range g.Connections() {
		s.conns = append(s.conns, *c)
	}
	return s
}

func TestNew(t *testing.T) {
	g := newTestGraph(t)
	require.NotEmpty(t, g.ID)
	root, ok := g.Element(g.Root())
	require.True(t, ok)
	assert.Equal(t, ElementRoot, root.Kind)
	assert.Same(t, g, root.Graph())
	assert.Equal(t, 2, g.NextID())
}

func TestConnect_StructuralErrors(t *testing.T) {
	g := newTestGraph(t)
	start := addNode(t, g, "start")
	sink := addNode(t, g, "sink")
	num := addNode(t, g, "num")
	add := addNode(t, g, "add")

	_, err := g.Connect(nodeid.Ref(num.ID, "value"), nodeid.Ref(add.ID, "a"))
	require.NoError(t, err)
	_, err = g.Connect(nodeid.Ref(start.ID, "out"), nodeid.Ref(sink.ID, "in"))
	require.NoError(t, err)

	testCases := []struct {
		name string
		from nodeid.PortRef
		to   nodeid.PortRef
	}{
		{"unknown source port", nodeid.Ref(num.ID, "nope"), nodeid.Ref(add.ID, "b")},
		{"unknown node", nodeid.Ref(999, "value"), nodeid.Ref(add.ID, "b")},
		{"input as source", nodeid.Ref(add.ID, "a"), nodeid.Ref(add.ID, "b")},
		{"output as target", nodeid.Ref(num.ID, "value"), nodeid.Ref(add.ID, "result")},
		{"channel mismatch", nodeid.Ref(start.ID, "out"), nodeid.Ref(add.ID, "b")},
		{"self edge", nodeid.Ref(sink.ID, "out"), nodeid.Ref(sink.ID, "in")},
		{"duplicate edge", nodeid.Ref(start.ID, "out"), nodeid.Ref(sink.ID, "in")},
		{"value self loop", nodeid.Ref(add.ID, "result"), nodeid.Ref(add.ID, "b")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := take(g)
			_, err := g.Connect(tc.from, tc.to)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStructural)
			var se *StructuralError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, g.ID, se.GraphID)
			assert.Equal(t, before, take(g), "graph must be unmodified")
		})
	}
}

func TestConnect_ValueCycleAcrossNodes(t *testing.T) {
	g := newTestGraph(t)
	a := addNode(t, g, "add")
	b := addNode(t, g, "add")
	_, err := g.Connect(nodeid.Ref(a.ID, "result"), nodeid.Ref(b.ID, "a"))
	require.NoError(t, err)

	before := take(g)
	_, err = g.Connect(nodeid.Ref(b.ID, "result"), nodeid.Ref(a.ID, "a"))
	assert.ErrorIs(t, err, ErrStructural)
	assert.Contains(t, err.Error(), "value cycle")
	assert.Equal(t, before, take(g))
}

func TestConnect_TypeRejectionLeavesGraphUnmodified(t *testing.T) {
	g := newTestGraph(t)
	flag := addNode(t, g, "flag")
	add := addNode(t, g, "add")
	num := addNode(t, g, "num")
	_, err := g.Connect(nodeid.Ref(num.ID, "value"), nodeid.Ref(add.ID, "a"))
	require.NoError(t, err)

	before := take(g)
	_, err = g.Connect(nodeid.Ref(flag.ID, "value"), nodeid.Ref(add.ID, "a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompatibleType)

	var te *TypeError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, nodeid.Ref(add.ID, "a"), te.To)
	assert.Equal(t, before, take(g), "existing producer must survive a rejected replacement")
}

func TestConnect_SingleProducerReplacement(t *testing.T) {
	g := newTestGraph(t)
	n1 := addNode(t, g, "num")
	n2 := addNode(t, g, "num")
	add := addNode(t, g, "add")
	target := nodeid.Ref(add.ID, "a")

	first, err := g.Connect(nodeid.Ref(n1.ID, "value"), target)
	require.NoError(t, err)
	second, err := g.Connect(nodeid.Ref(n2.ID, "value"), target)
	require.NoError(t, err)

	incoming := g.Incoming(target)
	require.Len(t, incoming, 1)
	assert.Equal(t, second.ID, incoming[0].ID)
	_, ok := g.Connection(first.ID)
	assert.False(t, ok)

	prod, ok := g.Producer(target)
	require.True(t, ok)
	assert.Equal(t, nodeid.Ref(n2.ID, "value"), prod.From)
}

func TestConnect_FlowFanIn(t *testing.T) {
	g := newTestGraph(t)
	s1 := addNode(t, g, "start")
	s2 := addNode(t, g, "start")
	sink := addNode(t, g, "sink")
	in := nodeid.Ref(sink.ID, "in")

	_, err := g.Connect(nodeid.Ref(s1.ID, "out"), in)
	require.NoError(t, err)
	_, err = g.Connect(nodeid.Ref(s2.ID, "out"), in)
	require.NoError(t, err)

	assert.Len(t, g.Incoming(in), 2)
	assert.NoError(t, g.Validate())
}

func TestConnect_AutoConversion(t *testing.T) {
	g := newTestGraph(t)
	num := addNode(t, g, "num")
	sink := addNode(t, g, "sink")

	conn, err := g.Connect(nodeid.Ref(num.ID, "value"), nodeid.Ref(sink.ID, "text"))
	require.NoError(t, err)

	helper, ok := g.Node(conn.From.Node)
	require.True(t, ok)
	assert.Equal(t, "to_string", helper.Kind)
	assert.True(t, helper.AutoInserted)
	assert.Equal(t, "out", conn.From.Port)

	in := g.Incoming(nodeid.Ref(helper.ID, "in"))
	require.Len(t, in, 1)
	assert.Equal(t, nodeid.Ref(num.ID, "value"), in[0].From)
	require.NoError(t, g.Validate())

	t.Run("disconnect prunes the helper", func(t *testing.T) {
		require.NoError(t, g.Disconnect(conn.ID))
		_, ok := g.Node(helper.ID)
		assert.False(t, ok)
		assert.Empty(t, g.Connections())
		_, ok = g.Node(num.ID)
		assert.True(t, ok)
	})
}

func TestConnect_ReplacingConvertedEdgePrunesHelper(t *testing.T) {
	g := newTestGraph(t)
	num := addNode(t, g, "num")
	str := addNode(t, g, "str")
	sink := addNode(t, g, "sink")
	text := nodeid.Ref(sink.ID, "text")

	conv, err := g.Connect(nodeid.Ref(num.ID, "value"), text)
	require.NoError(t, err)
	helper := conv.From.Node

	_, err = g.Connect(nodeid.Ref(str.ID, "value"), text)
	require.NoError(t, err)
	_, ok := g.Node(helper)
	assert.False(t, ok)
	assert.Len(t, g.Connections(), 1)
}

func TestDestroy_RemovesConnectionsBeforeNode(t *testing.T) {
	g := newTestGraph(t)
	start := addNode(t, g, "start")
	sink := addNode(t, g, "sink")
	num := addNode(t, g, "num")
	_, err := g.Connect(nodeid.Ref(start.ID, "out"), nodeid.Ref(sink.ID, "in"))
	require.NoError(t, err)
	_, err = g.Connect(nodeid.Ref(num.ID, "value"), nodeid.Ref(sink.ID, "count"))
	require.NoError(t, err)

	var events []Event
	g.Observe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, g.Destroy(sink.ID))

	require.Len(t, events, 3)
	assert.Equal(t, ConnectionRemoved, events[0].Type)
	assert.Equal(t, ConnectionRemoved, events[1].Type)
	assert.Equal(t, Event{Type: NodeRemoved, Element: sink.ID}, events[2])
	assert.Empty(t, g.Connections())
}

func TestDestroy_GroupIsPostOrder(t *testing.T) {
	g := newTestGraph(t)
	group, err := g.AddGroup(g.Root(), "group")
	require.NoError(t, err)
	inner, err := g.AddNode(group.ID, NodeSpec{Kind: "num"})
	require.NoError(t, err)

	var removed []nodeid.ID
	g.Observe(func(ev Event) {
		if ev.Type == NodeRemoved || ev.Type == ElementRemoved {
			removed = append(removed, ev.Element)
		}
	})
	require.NoError(t, g.Destroy(group.ID))
	assert.Equal(t, []nodeid.ID{inner.ID, group.ID}, removed)
	assert.Nil(t, group.Graph())

	assert.ErrorIs(t, g.Destroy(g.Root()), ErrStructural)
}

func TestAttach(t *testing.T) {
	g := newTestGraph(t)
	outer, err := g.AddGroup(g.Root(), "outer")
	require.NoError(t, err)
	inner, err := g.AddGroup(outer.ID, "inner")
	require.NoError(t, err)
	n := addNode(t, g, "num")

	require.NoError(t, g.Attach(inner.ID, n.ID))
	assert.True(t, g.IsDescendant(n.ID, outer.ID))

	err = g.Attach(inner.ID, outer.ID)
	assert.ErrorIs(t, err, ErrStructural, "moving a group under its own descendant")

	err = g.Attach(n.ID, outer.ID)
	assert.ErrorIs(t, err, ErrStructural, "nodes cannot own children")

	n2 := addNode(t, g, "num")
	require.NoError(t, g.AttachAt(inner.ID, n2.ID, 0))
	el, _ := g.Element(inner.ID)
	assert.Equal(t, []nodeid.ID{n2.ID, n.ID}, el.Children)
}

func TestFind(t *testing.T) {
	g := newTestGraph(t)
	group, err := g.AddGroup(g.Root(), "group")
	require.NoError(t, err)
	a := addNode(t, g, "num")
	b, err := g.AddNode(group.ID, NodeSpec{Kind: "num"})
	require.NoError(t, err)
	c := addNode(t, g, "str")

	collect := func(recursive bool) []nodeid.ID {
		var ids []nodeid.ID
		for e := range g.Find(g.Root(), IsNodeKind("num"), recursive) {
			ids = append(ids, e.ID)
		}
		return ids
	}

	assert.Equal(t, []nodeid.ID{b.ID, a.ID}, collect(true))
	assert.Equal(t, []nodeid.ID{a.ID}, collect(false))
	// Restartable.
	assert.Equal(t, collect(true), collect(true))

	var first *Element
	for e := range g.Find(g.Root(), IsNode, true) {
		first = e
		break
	}
	assert.Equal(t, b.ID, first.ID)

	var all []nodeid.ID
	for n := range g.Nodes(g.Root()) {
		all = append(all, n.ID)
	}
	assert.Equal(t, []nodeid.ID{b.ID, a.ID, c.ID}, all)
}

func TestMembers(t *testing.T) {
	g := newTestGraph(t)
	v, err := g.AddVariable(Variable{Name: "count", Type: cty.Number})
	require.NoError(t, err)
	assert.True(t, v.Default.RawEquals(cty.Zero))

	_, err = g.AddProperty(Property{Name: "count", Type: cty.String})
	assert.ErrorIs(t, err, ErrStructural, "names are unique across member kinds")

	_, err = g.AddProperty(Property{Name: "label", Type: cty.String, Default: cty.NumberIntVal(3)})
	require.NoError(t, err)
	assert.Equal(t, "3", g.Property("label").Default.AsString())

	get, err := g.AddNode(g.Root(), NodeSpec{Kind: "get", Settings: map[string]cty.Value{"member": cty.StringVal("count")}})
	require.NoError(t, err)
	assert.True(t, get.Port("value").Type.Equals(cty.Number))

	require.NoError(t, g.SetStateType("count", cty.String))
	assert.True(t, get.Port("value").Type.Equals(cty.String))

	err = g.RemoveMember("count")
	assert.ErrorIs(t, err, ErrStructural, "referenced members stay")
	require.NoError(t, g.Destroy(get.ID))
	require.NoError(t, g.RemoveMember("count"))
	assert.Equal(t, MemberNone, g.MemberKindOf("count"))
}

func TestFunctions(t *testing.T) {
	g := newTestGraph(t)
	f, err := g.AddFunction("greet", []Param{{Name: "who", Type: cty.String}}, cty.NilType)
	require.NoError(t, err)

	_, err = g.FunctionEntry(f)
	assert.Error(t, err)
	assert.Error(t, g.Validate())

	entry, err := g.AddNode(f.Body, NodeSpec{Kind: FunctionEntryKind})
	require.NoError(t, err)
	got, err := g.FunctionEntry(f)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	require.NoError(t, g.Validate())

	body, owner := g.BodyOf(entry.ID)
	assert.Equal(t, f.Body, body)
	assert.Equal(t, "greet", owner)

	var top int
	for range g.TopLevelNodes() {
		top++
	}
	assert.Zero(t, top)

	assert.ErrorIs(t, g.Destroy(f.Body), ErrStructural)
	require.NoError(t, g.RemoveMember("greet"))
	_, ok := g.Node(entry.ID)
	assert.False(t, ok)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	g := newTestGraph(t)
	n1 := addNode(t, g, "num")
	n2 := addNode(t, g, "num")
	add := addNode(t, g, "add")
	_, err := g.RestoreConnection(100, nodeid.Ref(n1.ID, "value"), nodeid.Ref(add.ID, "a"), false)
	require.NoError(t, err)
	_, err = g.RestoreConnection(101, nodeid.Ref(n2.ID, "value"), nodeid.Ref(add.ID, "a"), false)
	require.NoError(t, err)
	_, err = g.AddFunction("broken", nil, cty.NilType)
	require.NoError(t, err)

	err = g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one producer")
	assert.Contains(t, err.Error(), "exactly one entry node")
	assert.Equal(t, 103, g.NextID())
}

func TestRestore_KeepsIDs(t *testing.T) {
	g := New("Restored", testKinds{})
	n, err := g.RestoreNode(g.Root(), 7, NodeSpec{Kind: "num"}, false)
	require.NoError(t, err)
	assert.Equal(t, nodeid.ID(7), n.ID)

	_, err = g.RestoreNode(g.Root(), 7, NodeSpec{Kind: "num"}, false)
	assert.ErrorIs(t, err, ErrStructural)

	fresh := addNode(t, g, "num")
	assert.Equal(t, nodeid.ID(8), fresh.ID)
}

func TestTransplant(t *testing.T) {
	src := New("Src", testKinds{})
	dst := New("Dst", testKinds{})

	_, err := src.AddVariable(Variable{Name: "total", Type: cty.Number, Default: cty.NumberIntVal(5)})
	require.NoError(t, err)

	group, err := src.AddGroup(src.Root(), "math")
	require.NoError(t, err)
	get, err := src.AddNode(group.ID, NodeSpec{Kind: "get", Settings: map[string]cty.Value{"member": cty.StringVal("total")}})
	require.NoError(t, err)
	add, err := src.AddNode(group.ID, NodeSpec{Kind: "add"})
	require.NoError(t, err)
	outside := addNode(t, src, "num")

	_, err = src.Connect(nodeid.Ref(get.ID, "value"), nodeid.Ref(add.ID, "a"))
	require.NoError(t, err)
	_, err = src.Connect(nodeid.Ref(outside.ID, "value"), nodeid.Ref(add.ID, "b"))
	require.NoError(t, err)

	ids, err := Transplant(src, group.ID, dst, dst.Root())
	require.NoError(t, err)
	require.Len(t, ids, 3)

	// Source lost the subtree and the boundary edge.
	_, ok := src.Element(group.ID)
	assert.False(t, ok)
	assert.Empty(t, src.Connections())

	// Destination has the member, the nodes and only the internal edge.
	require.NotNil(t, dst.Variable("total"))
	assert.True(t, dst.Variable("total").Default.RawEquals(cty.NumberIntVal(5)))
	conns := dst.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, nodeid.Ref(ids[get.ID], "value"), conns[0].From)
	assert.Equal(t, nodeid.Ref(ids[add.ID], "a"), conns[0].To)
	require.NoError(t, dst.Validate())
}

// transplantSource builds a graph with a group holding get(total) -> add.a.
func transplantSource(t *testing.T) (*Graph, *Element) {
	t.Helper()
	src := New("Src", testKinds{})
	_, err := src.AddVariable(Variable{Name: "total", Type: cty.Number})
	require.NoError(t, err)
	group, err := src.AddGroup(src.Root(), "math")
	require.NoError(t, err)
	get, err := src.AddNode(group.ID, NodeSpec{Kind: "get", Settings: map[string]cty.Value{"member": cty.StringVal("total")}})
	require.NoError(t, err)
	add, err := src.AddNode(group.ID, NodeSpec{Kind: "add"})
	require.NoError(t, err)
	_, err = src.Connect(nodeid.Ref(get.ID, "value"), nodeid.Ref(add.ID, "a"))
	require.NoError(t, err)
	return src, group
}

func TestTransplant_FailureLeavesGraphsUnmodified(t *testing.T) {
	testCases := []struct {
		name    string
		dst     func(t *testing.T) *Graph
		wantErr error
	}{
		{
			name: "member declared with another type",
			dst: func(t *testing.T) *Graph {
				g := newTestGraph(t)
				_, err := g.AddVariable(Variable{Name: "total", Type: cty.Bool})
				require.NoError(t, err)
				return g
			},
			wantErr: ErrStructural,
		},
		{
			name: "member declared as a property",
			dst: func(t *testing.T) *Graph {
				g := newTestGraph(t)
				_, err := g.AddProperty(Property{Name: "total", Type: cty.Number})
				require.NoError(t, err)
				return g
			},
			wantErr: ErrStructural,
		},
		{
			name: "internal edge invalid in the target",
			dst: func(t *testing.T) *Graph {
				return New("Dst", boolAddKinds{})
			},
			wantErr: ErrIncompatibleType,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src, group := transplantSource(t)
			dst := tc.dst(t)
			srcBefore, dstBefore := take(src), take(dst)
			dstNext := dst.NextID()
			dstVars := len(dst.Variables())

			_, err := Transplant(src, group.ID, dst, dst.Root())
			require.ErrorIs(t, err, tc.wantErr)

			assert.Equal(t, dstBefore, take(dst))
			assert.Equal(t, dstNext, dst.NextID())
			assert.Len(t, dst.Variables(), dstVars)
			assert.Equal(t, srcBefore, take(src))
			_, ok := src.Element(group.ID)
			assert.True(t, ok)
			require.NoError(t, dst.Validate())
		})
	}
}

func TestTransplant_FunctionSignatureMismatch(t *testing.T) {
	src := New("Src", testKinds{})
	dst := New("Dst", testKinds{})
	_, err := src.AddFunction("greet", []Param{{Name: "who", Type: cty.String}}, cty.NilType)
	require.NoError(t, err)
	_, err = dst.AddFunction("greet", []Param{{Name: "who", Type: cty.Number}}, cty.NilType)
	require.NoError(t, err)
	call, err := src.AddNode(src.Root(), NodeSpec{Kind: "call", Settings: map[string]cty.Value{"function": cty.StringVal("greet")}})
	require.NoError(t, err)

	dstBefore := take(dst)
	_, err = Transplant(src, call.ID, dst, dst.Root())
	require.ErrorIs(t, err, ErrStructural)
	assert.Contains(t, err.Error(), "another signature")
	assert.Equal(t, dstBefore, take(dst))
}

func TestSetStateType_RejectsEdgeItBreaks(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.AddVariable(Variable{Name: "count", Type: cty.Number, Default: cty.NumberIntVal(4)})
	require.NoError(t, err)
	get, err := g.AddNode(g.Root(), NodeSpec{Kind: "get", Settings: map[string]cty.Value{"member": cty.StringVal("count")}})
	require.NoError(t, err)
	add := addNode(t, g, "add")
	_, err = g.Connect(nodeid.Ref(get.ID, "value"), nodeid.Ref(add.ID, "a"))
	require.NoError(t, err)

	before := take(g)
	err = g.SetStateType("count", cty.Bool)
	require.ErrorIs(t, err, ErrIncompatibleType)
	var te *TypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, nodeid.Ref(add.ID, "a"), te.To)

	assert.Equal(t, before, take(g))
	assert.True(t, g.Variable("count").Type.Equals(cty.Number))
	assert.True(t, g.Variable("count").Default.RawEquals(cty.NumberIntVal(4)))
	assert.True(t, get.Port("value").Type.Equals(cty.Number))
	require.NoError(t, g.Validate())
}

func TestSetStateType_InsertsConverter(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.AddVariable(Variable{Name: "label", Type: cty.String})
	require.NoError(t, err)
	get, err := g.AddNode(g.Root(), NodeSpec{Kind: "get", Settings: map[string]cty.Value{"member": cty.StringVal("label")}})
	require.NoError(t, err)
	sink := addNode(t, g, "sink")
	text := nodeid.Ref(sink.ID, "text")
	_, err = g.Connect(nodeid.Ref(get.ID, "value"), text)
	require.NoError(t, err)

	require.NoError(t, g.SetStateType("label", cty.Number))

	prod, ok := g.Producer(text)
	require.True(t, ok)
	helper, ok := g.Node(prod.From.Node)
	require.True(t, ok)
	assert.Equal(t, "to_string", helper.Kind)
	assert.True(t, helper.AutoInserted)
	in, ok := g.Producer(nodeid.Ref(helper.ID, "in"))
	require.True(t, ok)
	assert.Equal(t, nodeid.Ref(get.ID, "value"), in.From)
	assert.Len(t, g.Connections(), 2)
	require.NoError(t, g.Validate())
}

func TestConnect_ConverterFailureKeepsProducer(t *testing.T) {
	calls := 0
	g := New("Test", failingConverterKinds{calls: &calls})
	num := addNode(t, g, "num")
	str := addNode(t, g, "str")
	sink := addNode(t, g, "sink")
	text := nodeid.Ref(sink.ID, "text")
	_, err := g.Connect(nodeid.Ref(str.ID, "value"), text)
	require.NoError(t, err)

	before := take(g)
	_, err = g.Connect(nodeid.Ref(num.ID, "value"), text)
	require.ErrorIs(t, err, ErrStructural)
	assert.Equal(t, 2, calls)
	assert.Equal(t, before, take(g))
	prod, ok := g.Producer(text)
	require.True(t, ok)
	assert.Equal(t, nodeid.Ref(str.ID, "value"), prod.From)
}
