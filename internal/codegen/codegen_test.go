package codegen_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/specialistvlad/nodegraph/internal/codegen"
	"github.com/specialistvlad/nodegraph/internal/diag"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/hclgraph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/testutil"
	"github.com/specialistvlad/nodegraph/modules/core"
	"github.com/specialistvlad/nodegraph/modules/print"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func generate(t *testing.T, g *graph.Graph, opts codegen.Options) *codegen.GeneratedData {
	t.Helper()
	data, err := codegen.New(testutil.NewRegistry(), opts).Generate(context.Background(), g)
	require.NoError(t, err)
	return data
}

func lineOf(t *testing.T, src []byte, needle string) int {
	t.Helper()
	for i, l := range strings.Split(string(src), "\n") {
		if strings.Contains(l, needle) {
			return i + 1
		}
	}
	t.Fatalf("%q not found in:\n%s", needle, src)
	return 0
}

func codes(ds []*codegen.GenerationError) []codegen.Code {
	var out []codegen.Code
	for _, d := range ds {
		out = append(out, d.Code)
	}
	return out
}

func helloGraph(t *testing.T) (*testutil.Builder, nodeid.ID) {
	b := testutil.NewBuilder(t, testutil.NewRegistry(), "hello")
	start := b.Event("start")
	c := b.Const("hello")
	p := b.Add(print.KindPrint)
	b.Flow(start, p)
	b.Connect(c, "value", p, "value")
	return b, p
}

func TestGenerate_Hello(t *testing.T) {
	b, printID := helloGraph(t)
	data := generate(t, b.G, codegen.Options{})

	hash, err := hclgraph.Hash(b.G)
	require.NoError(t, err)
	want := fmt.Sprintf(`// Code generated by nodegraph. DO NOT EDIT.
// Graph: "hello"
// Content hash: %s

package graphs

import "github.com/specialistvlad/nodegraph/pkg/nodert"

const graphHelloID = %q

// BindHello binds graph "hello" to a host.
func BindHello(h nodert.Host) (*nodert.Program, error) {
	p := nodert.NewProgram(graphHelloID)
	p.On("start", func() error {
		var err error
		_ = err
		// node %d (core.print)
		if err = nodert.Print(h, "hello"); err != nil {
			return nodert.Fail(graphHelloID, %d, err)
		}
		return nil
	})
	return p, nil
}
`, hash, b.G.ID, printID, printID)
	assert.Equal(t, want, string(data.Source))

	assert.Equal(t, 1, strings.Count(string(data.Source), `nodert.Print(h, "hello")`))
	assert.Equal(t, "BindHello", data.BindFunc)
	assert.Equal(t, hash, data.Hash)
	assert.Empty(t, data.Diagnostics)
	assert.True(t, data.Generated.IsZero())

	line := lineOf(t, data.Source, "nodert.Print(")
	assert.Equal(t, printID, data.LineMap[line])
	assert.Equal(t, printID, data.LineMap[line+1])
	_, mapped := data.LineMap[lineOf(t, data.Source, "return p, nil")]
	assert.False(t, mapped)
}

func TestGenerate_IsPure(t *testing.T) {
	b, _ := helloGraph(t)
	b.Variable("count", cty.Number, 1)
	first := generate(t, b.G, codegen.Options{})
	second := generate(t, b.G, codegen.Options{})
	assert.Equal(t, string(first.Source), string(second.Source))

	b.G.Metadata["editor.x"] = "10"
	third := generate(t, b.G, codegen.Options{})
	assert.Equal(t, string(first.Source), string(third.Source), "metadata is not part of the output")

	src, err := hclgraph.Encode(hclgraph.EncodeOptions{}, b.G)
	require.NoError(t, err)
	decoded, err := hclgraph.Decode(context.Background(), src, "hello.hcl", testutil.NewRegistry())
	require.NoError(t, err)
	fromDisk := generate(t, decoded[0], codegen.Options{})
	assert.Equal(t, string(first.Source), string(fromDisk.Source))
	assert.Equal(t, first.Hash, fromDisk.Hash)

	stamped := generate(t, b.G, codegen.Options{Timestamp: true})
	assert.False(t, stamped.Generated.IsZero())
	assert.Contains(t, string(stamped.Source), "// Generated at: ")
	assert.Equal(t, first.Hash, stamped.Hash)
}

func TestGenerate_Branch(t *testing.T) {
	b := testutil.NewBuilder(t, testutil.NewRegistry(), "branchy")
	start := b.Event("start")
	br := b.Add(core.KindBranch)
	b.Input(br, "condition", true)
	yes := b.Add(print.KindPrint)
	b.Input(yes, "value", "yes")
	no := b.Add(print.KindPrint)
	b.Input(no, "value", "no")
	b.Flow(start, br)
	b.Connect(br, "true", yes, "in")
	b.Connect(br, "false", no, "in")

	src := string(generate(t, b.G, codegen.Options{}).Source)
	assert.Contains(t, src, "if true {")
	assert.Contains(t, src, "} else {")
	assert.Equal(t, 1, strings.Count(src, `nodert.Print(h, "yes")`))
	assert.Equal(t, 1, strings.Count(src, `nodert.Print(h, "no")`))
	assert.Less(t, strings.Index(src, `"yes"`), strings.Index(src, "} else {"))
	assert.Greater(t, strings.Index(src, `"no"`), strings.Index(src, "} else {"))
}

func TestGenerate_BranchJoin(t *testing.T) {
	b := testutil.NewBuilder(t, testutil.NewRegistry(), "join")
	start := b.Event("start")
	br := b.Add(core.KindBranch)
	yes := b.Add(print.KindPrint)
	b.Input(yes, "value", "yes")
	no := b.Add(print.KindPrint)
	b.Input(no, "value", "no")
	after := b.Add(print.KindPrint)
	b.Input(after, "value", "after")
	b.Flow(start, br)
	b.Connect(br, "true", yes, "in")
	b.Connect(br, "false", no, "in")
	b.Flow(yes, after)
	b.Flow(no, after)

	src := string(generate(t, b.G, codegen.Options{}).Source)
	assert.Equal(t, 1, strings.Count(src, `nodert.Print(h, "after")`))
	assert.Greater(t, strings.Index(src, `"after"`), strings.LastIndex(src, "} else {"))
}

func TestGenerate_Hoisting(t *testing.T) {
	b := testutil.NewBuilder(t, testutil.NewRegistry(), "hoist")
	b.Variable("count", cty.Number, 1)
	start := b.Event("start")

	two := b.Const(2)
	sum := b.Add(core.KindMath, "op", "add")
	b.Connect(two, "value", sum, "a")
	b.Connect(two, "value", sum, "b")

	get := b.Add(core.KindGet, "member", "count")
	twice := b.Add(core.KindMath, "op", "mul")
	b.Connect(get, "value", twice, "a")
	b.Connect(get, "value", twice, "b")

	div := b.Add(core.KindMath, "op", "div")
	b.Connect(sum, "result", div, "a")
	b.Connect(twice, "result", div, "b")

	p := b.Add(print.KindPrint)
	b.Flow(start, p)
	b.Connect(div, "result", p, "value")

	data := generate(t, b.G, codegen.Options{})
	src := string(data.Source)
	two2 := data.Symbols[nodeid.Ref(two, "value").String()]
	quot := data.Symbols[nodeid.Ref(div, "result").String()]
	require.NotEmpty(t, two2)

	assert.Equal(t, 1, strings.Count(src, two2+" = float64(2)"), "shared value is hoisted once")
	assert.Contains(t, src, "("+two2+" + "+two2+")")
	assert.Contains(t, src, "(vCount * vCount)", "impure values are read at every use")
	assert.Contains(t, src, quot+", err = nodert.Div(")
	assert.Contains(t, src, fmt.Sprintf("return nodert.Fail(graphHoistID, %d, err)", div))
	assert.Equal(t, div, data.LineMap[lineOf(t, data.Source, quot+", err =")])
}

func TestGenerate_FunctionsAndState(t *testing.T) {
	b := testutil.NewBuilder(t, testutil.NewRegistry(), "state")
	b.Property("label", cty.String, "init", graph.ModPublic)
	body, entry := b.Function("double", []graph.Param{{Name: "x", Type: cty.Number}}, cty.Number)
	mul := body.Add(core.KindMath, "op", "mul")
	body.Connect(entry, "x", mul, "a")
	body.Input(mul, "b", 2)
	ret := body.Add(core.KindReturn, "function", "double")
	body.Connect(entry, "out", ret, "in")
	body.Connect(mul, "result", ret, "value")

	ctor, centry := b.Constructor("init")
	set := ctor.Add(core.KindSet, "member", "label")
	ctor.Input(set, "value", "ready")
	ctor.Connect(centry, "out", set, "in")

	data := generate(t, b.G, codegen.Options{})
	src := string(data.Source)
	assert.Empty(t, data.Diagnostics)
	assert.Contains(t, src, `var pLabel string = "init"`)
	assert.Contains(t, src, "var fnDouble func(aX float64) (float64, error)")
	assert.Contains(t, src, "fnDouble = func(aX float64) (float64, error) {")
	assert.Contains(t, src, "ctorInit := func() error {")
	assert.Contains(t, src, `pLabel = "ready"`)
	assert.Contains(t, src, `p.Property("label", func() any {`)
	assert.Equal(t, "fnDouble", data.Symbols["function.double"])
	assert.Equal(t, "aX", data.Symbols["param.double.x"])
}

func TestGenerate_Stubs(t *testing.T) {
	testCases := []struct {
		name  string
		build func(b *testutil.Builder) nodeid.ID
		code  codegen.Code
	}{
		{
			name: "delay inside function",
			build: func(b *testutil.Builder) nodeid.ID {
				body, entry := b.Function("wait", nil, cty.NilType)
				d := body.Add(core.KindDelay, "ticks", 1)
				body.Flow(entry, d)
				return d
			},
			code: codegen.UnsupportedConstructError,
		},
		{
			name: "flow cycle",
			build: func(b *testutil.Builder) nodeid.ID {
				start := b.Event("start")
				first := b.Add(print.KindPrint)
				second := b.Add(print.KindPrint)
				b.Flow(start, first, second, first)
				return first
			},
			code: codegen.UnsupportedConstructError,
		},
		{
			name: "member without representation",
			build: func(b *testutil.Builder) nodeid.ID {
				b.Variable("items", cty.List(cty.String), nil)
				start := b.Event("start")
				get := b.Add(core.KindGet, "member", "items")
				p := b.Add(print.KindPrint)
				b.Flow(start, p)
				b.Connect(get, "value", p, "value")
				return get
			},
			code: codegen.TypeResolutionError,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := testutil.NewBuilder(t, testutil.NewRegistry(), "stubs")
			id := tc.build(b)
			data := generate(t, b.G, codegen.Options{})

			require.True(t, data.HasErrors())
			assert.Contains(t, codes(data.Diagnostics), tc.code)
			assert.Contains(t, string(data.Source), "nodert.Failf(graphStubsID, ")
			var located bool
			for _, d := range data.Diagnostics {
				assert.Equal(t, b.G.ID, d.GraphID)
				assert.Equal(t, diag.Error, d.Severity)
				if d.NodeID == id {
					located = true
				}
			}
			if tc.code != codegen.TypeResolutionError {
				assert.True(t, located, "diagnostics: %v", data.Diagnostics)
			}
		})
	}
}

func TestGenerate_NameCollision(t *testing.T) {
	b := testutil.NewBuilder(t, testutil.NewRegistry(), "names")
	b.Variable("my_var", cty.Number, 1)
	b.Variable("myVar", cty.Number, 2)

	data := generate(t, b.G, codegen.Options{})
	assert.Equal(t, "vMyVar", data.Symbols["variable.my_var"])
	assert.Equal(t, "vMyVar2", data.Symbols["variable.myVar"])
	require.Len(t, data.Diagnostics, 1)
	assert.Equal(t, codegen.NameCollisionError, data.Diagnostics[0].Code)
	assert.Equal(t, diag.Warning, data.Diagnostics[0].Severity)
	assert.False(t, data.HasErrors())
}

func TestGenerate_Loops(t *testing.T) {
	b := testutil.NewBuilder(t, testutil.NewRegistry(), "loops")
	start := b.Event("start")
	loop := b.Add(core.KindFor)
	b.Input(loop, "from", 1)
	b.Input(loop, "to", 3)
	p := b.Add(print.KindPrint)
	b.Flow(start, loop)
	b.Connect(loop, "body", p, "in")
	b.Connect(loop, "index", p, "value")
	done := b.Add(print.KindPrint)
	b.Input(done, "value", "done")
	b.Connect(loop, "completed", done, "in")

	data := generate(t, b.G, codegen.Options{})
	src := string(data.Source)
	index := data.Symbols[nodeid.Ref(loop, "index").String()]
	assert.Contains(t, src, "var "+index+" float64")
	assert.Contains(t, src, "nodert.Print(h, "+index+")")
	assert.Less(t, strings.Index(src, "for "), strings.Index(src, `"done"`))
	assert.Empty(t, data.Diagnostics)
}

func TestGenerate_Cancel(t *testing.T) {
	b, _ := helloGraph(t)
	_, err := codegen.New(testutil.NewRegistry(), codegen.Options{Cancel: func() bool { return true }}).
		Generate(context.Background(), b.G)
	require.ErrorIs(t, err, codegen.ErrCanceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = codegen.New(testutil.NewRegistry(), codegen.Options{}).Generate(ctx, b.G)
	require.ErrorIs(t, err, codegen.ErrCanceled)
}

func TestMerge(t *testing.T) {
	a, aPrint := helloGraph(t)
	b, bPrint := helloGraph(t)
	da := generate(t, a.G, codegen.Options{})
	db := generate(t, b.G, codegen.Options{})

	m, err := codegen.Merge("graphs", da, db)
	require.NoError(t, err)
	src := string(m.Source)
	assert.Equal(t, 1, strings.Count(src, "package graphs"))
	assert.Equal(t, 1, strings.Count(src, "import "))
	assert.Contains(t, src, "func BindHello(h nodert.Host)")
	assert.Contains(t, src, "func BindHello2(h nodert.Host)")
	assert.Contains(t, src, "nodert.NewProgram(graphHelloID2)")
	assert.Equal(t, 2, strings.Count(src, `// BindHello binds graph "hello" to a host.`), "comments are left alone")
	assert.Equal(t, map[string]string{a.G.ID: "BindHello", b.G.ID: "BindHello2"}, m.Binds)
	require.Len(t, m.Diagnostics, 2)
	for _, d := range m.Diagnostics {
		assert.Equal(t, codegen.NameCollisionError, d.Code)
		assert.Equal(t, b.G.ID, d.GraphID)
	}

	seen := map[string]nodeid.ID{}
	for _, o := range m.Origins {
		seen[o.GraphID] = o.NodeID
	}
	assert.Equal(t, map[string]nodeid.ID{a.G.ID: aPrint, b.G.ID: bPrint}, seen)
}
