package hclgraph_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/hclgraph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/testutil"
	"github.com/specialistvlad/nodegraph/modules/core"
	"github.com/specialistvlad/nodegraph/modules/print"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"pgregory.net/rapid"
)

type connSnap struct {
	ID       nodeid.ConnID
	From, To string
	Proxy    bool
}

func conns(g *graph.Graph) []connSnap {
	var out []connSnap
	for _, c := range g.Connections() {
		out = append(out, connSnap{ID: c.ID, From: c.From.String(), To: c.To.String(), Proxy: c.Proxy})
	}
	return out
}

// roundTrip encodes g, decodes it again and checks the result is the same
// graph.
func roundTrip(t testutil.T, g *graph.Graph) *graph.Graph {
	t.Helper()
	ctx := context.Background()
	src, err := hclgraph.Encode(hclgraph.EncodeOptions{}, g)
	require.NoError(t, err)
	decoded, err := hclgraph.Decode(ctx, src, "test.hcl", g.Kinds())
	require.NoError(t, err, "source:\n%s", src)
	require.Len(t, decoded, 1)
	back := decoded[0]

	again, err := hclgraph.Encode(hclgraph.EncodeOptions{}, back)
	require.NoError(t, err)
	require.Equal(t, string(src), string(again))

	require.Equal(t, g.ID, back.ID)
	require.Equal(t, g.NextID(), back.NextID())
	require.Equal(t, g.NodeIDs(), back.NodeIDs())
	require.Empty(t, cmp.Diff(conns(g), conns(back)))

	h1, err := hclgraph.Hash(g)
	require.NoError(t, err)
	h2, err := hclgraph.Hash(back)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	return back
}

func sampleGraph(t *testing.T) *testutil.Builder {
	b := testutil.NewBuilder(t, testutil.NewRegistry(), "sample")
	b.G.Metadata["editor.zoom"] = "1.5"
	b.Variable("count", cty.Number, 2)
	b.Property("label", cty.String, "hi", graph.ModPublic, graph.ModReadOnly)

	body, entry := b.Function("double", []graph.Param{{Name: "x", Type: cty.Number}}, cty.Number)
	mul := body.Add(core.KindMath, "op", "mul")
	body.Connect(entry, "x", mul, "a")
	body.Input(mul, "b", 2)
	ret := body.Add(core.KindReturn, "function", "double")
	body.Connect(entry, "out", ret, "in")
	body.Connect(mul, "result", ret, "value")

	ctor, centry := b.Constructor("init")
	set := ctor.Add(core.KindSet, "member", "count")
	ctor.Input(set, "value", 10)
	ctor.Connect(centry, "out", set, "in")

	start := b.Event("start")
	grp, err := b.G.AddGroup(b.G.Root(), "tools")
	require.NoError(t, err)
	b.Parent = grp.ID
	call := b.Add(core.KindCall, "function", "double")
	b.Input(call, "x", 0.1)
	p := b.Add(print.KindPrint)
	c := b.Connect(call, "result", p, "value")
	require.NoError(t, b.G.SetProxy(c.ID, true))
	b.Parent = b.G.Root()
	b.Flow(start, call, p)
	tail := b.Add(print.KindPrint)
	b.Input(tail, "value", "quote \" and ${interp} %{dir}")
	b.Flow(p, tail)
	return b
}

func TestRoundTrip_Sample(t *testing.T) {
	b := sampleGraph(t)
	back := roundTrip(t, b.G)

	assert.Equal(t, "1.5", back.Metadata["editor.zoom"])
	require.NotNil(t, back.Property("label"))
	assert.True(t, back.Property("label").ReadOnly())
	f := back.Function("double")
	require.NotNil(t, f)
	assert.True(t, f.Returns.Equals(cty.Number))
	assert.Equal(t, b.G.Function("double").Body, f.Body)

	root, _ := back.Element(back.Root())
	orig, _ := b.G.Element(b.G.Root())
	assert.Equal(t, orig.Children, root.Children, "sibling order survives")

	// New ids continue after the persisted counter.
	n, err := back.AddNode(back.Root(), graph.NodeSpec{Kind: print.KindPrint})
	require.NoError(t, err)
	assert.Equal(t, nodeid.ID(b.G.NextID()), n.ID)
}

func TestHash_IgnoresMetadata(t *testing.T) {
	b := sampleGraph(t)
	h1, err := hclgraph.Hash(b.G)
	require.NoError(t, err)
	b.G.Metadata["editor.zoom"] = "3"
	h2, err := hclgraph.Hash(b.G)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	b.Add(print.KindPrint)
	h3, err := hclgraph.Hash(b.G)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestDecode_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "syntax error",
			src:     `graph "x" {`,
			wantErr: "failed to parse",
		},
		{
			name: "unknown kind",
			src: `graph "x" {
  id      = "a"
  next_id = 3
  node "n" {
    id     = 2
    parent = 1
    kind   = "nope.kind"
  }
}`,
			wantErr: "unknown node kind",
		},
		{
			name: "duplicate id",
			src: `graph "x" {
  id      = "a"
  next_id = 4
  node "a" {
    id       = 2
    parent   = 1
    kind     = "core.event"
    settings = { event = "start" }
  }
  node "b" {
    id       = 2
    parent   = 1
    kind     = "core.event"
    settings = { event = "start" }
  }
}`,
			wantErr: "already in use",
		},
		{
			name: "bad port reference",
			src: `graph "x" {
  id      = "a"
  next_id = 4
  connection {
    id   = 3
    from = "two.out"
    to   = "1.in"
  }
}`,
			wantErr: "invalid port reference",
		},
		{
			name: "function without entry",
			src: `graph "x" {
  id      = "a"
  next_id = 3
  function "f" {
    id = 2
  }
}`,
			wantErr: "exactly one entry node",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := hclgraph.Decode(context.Background(), []byte(tc.src), "bad.hcl", testutil.NewRegistry())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadFiles(t *testing.T) {
	b := sampleGraph(t)
	src, err := hclgraph.Encode(hclgraph.EncodeOptions{}, b.G)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "a.hcl"), src, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	gs, err := hclgraph.LoadFiles(context.Background(), testutil.NewRegistry(), dir, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Len(t, gs, 1)
	assert.Equal(t, "sample", gs[0].Name)
}

var mathOps = []string{"add", "sub", "mul", "div"}

func TestRoundTrip_Property(t *testing.T) {
	reg := testutil.NewRegistry()
	rapid.Check(t, func(rt *rapid.T) {
		b := testutil.NewBuilder(rt, reg, rapid.StringMatching(`[a-z][a-z0-9_]{0,8}`).Draw(rt, "name"))
		if rapid.Bool().Draw(rt, "metadata") {
			b.G.Metadata["note"] = rapid.StringMatching(`[a-z ]{0,10}`).Draw(rt, "note")
		}
		b.Variable("v", cty.Number, float64(rapid.IntRange(-1000, 1000).Draw(rt, "v")))

		parents := []nodeid.ID{b.G.Root()}
		for i := range rapid.IntRange(0, 3).Draw(rt, "groups") {
			grp, err := b.G.AddGroup(rapid.SampledFrom(parents).Draw(rt, "groupParent"), "g"+string(rune('a'+i)))
			require.NoError(rt, err)
			parents = append(parents, grp.ID)
		}

		var ids []nodeid.ID
		for range rapid.IntRange(1, 12).Draw(rt, "nodes") {
			b.Parent = rapid.SampledFrom(parents).Draw(rt, "parent")
			var id nodeid.ID
			switch rapid.IntRange(0, 5).Draw(rt, "kind") {
			case 0:
				f := rapid.Float64Range(-1e9, 1e9).Draw(rt, "number")
				if f == 0 {
					f = 0
				}
				id = b.Const(f)
			case 1:
				id = b.Const(rapid.StringMatching(`[a-zA-Z0-9 _.${}%"\\-]{0,12}`).Draw(rt, "string"))
			case 2:
				id = b.Add(core.KindMath, "op", rapid.SampledFrom(mathOps).Draw(rt, "op"))
			case 3:
				id = b.Add(print.KindPrint)
			case 4:
				id = b.Event(rapid.SampledFrom([]string{"start", "tick"}).Draw(rt, "event"))
			case 5:
				id = b.Add(core.KindGet, "member", "v")
			}
			ids = append(ids, id)
		}

		for range rapid.IntRange(0, 15).Draw(rt, "edges") {
			from, _ := b.G.Node(rapid.SampledFrom(ids).Draw(rt, "from"))
			to, _ := b.G.Node(rapid.SampledFrom(ids).Draw(rt, "to"))
			outs := outputs(from)
			ins := inputs(to)
			if len(outs) == 0 || len(ins) == 0 {
				continue
			}
			src := rapid.SampledFrom(outs).Draw(rt, "fromPort")
			dst := rapid.SampledFrom(ins).Draw(rt, "toPort")
			c, err := b.G.Connect(src.Ref(), dst.Ref())
			if err == nil && rapid.Bool().Draw(rt, "proxy") {
				require.NoError(rt, b.G.SetProxy(c.ID, true))
			}
		}
		roundTrip(rt, b.G)
	})
}

func outputs(n *graph.Node) []*graph.Port {
	var out []*graph.Port
	for _, p := range n.Ports {
		if p.Direction == graph.Output {
			out = append(out, p)
		}
	}
	return out
}

func inputs(n *graph.Node) []*graph.Port {
	var out []*graph.Port
	for _, p := range n.Ports {
		if p.Direction == graph.Input {
			out = append(out, p)
		}
	}
	return out
}
