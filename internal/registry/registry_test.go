package registry

import (
	"context"
	"testing"

	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/typecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func dataKind(name string, caps Capability) *Kind {
	return &Kind{
		Name:  name,
		Caps:  caps,
		Ports: Static(graph.ValueIn("in", cty.DynamicPseudoType), graph.ValueOut("out", cty.String)),
		Eval:  func(ExecContext) error { return nil },
		Emit:  func(EmitContext) error { return nil },
	}
}

func TestRegisterKind(t *testing.T) {
	r := New(WithCache(typecache.New()))
	r.RegisterKind(dataKind("test.a", 0))

	k, ok := r.Kind("test.a")
	require.True(t, ok)
	assert.False(t, k.IsFlow())
	assert.Equal(t, []string{"test.a"}, r.Names())

	assert.Panics(t, func() { r.RegisterKind(dataKind("test.a", 0)) })
}

func TestPorts(t *testing.T) {
	r := New(WithCache(typecache.New()))
	r.RegisterKind(dataKind("test.a", 0))
	g := graph.New("G", r)

	n, err := g.AddNode(g.Root(), graph.NodeSpec{Kind: "test.a"})
	require.NoError(t, err)
	require.Len(t, n.Ports, 2)
	assert.Equal(t, n.ID, n.Port("out").Node())

	_, err = g.AddNode(g.Root(), graph.NodeSpec{Kind: "test.missing"})
	assert.ErrorContains(t, err, `unknown node kind "test.missing"`)
}

func TestConverterOrder(t *testing.T) {
	r := New(WithCache(typecache.New()))
	r.RegisterKind(dataKind("conv.b", AutoConvert))
	r.RegisterKind(dataKind("conv.a", AutoConvert))
	r.RegisterKind(dataKind("conv.cast", AutoConvert))

	r.RegisterConverter(Converter{Name: "b", Priority: 10, From: cty.Number, To: cty.String, Kind: "conv.b"})
	r.RegisterConverter(Converter{Name: "a", Priority: 10, From: cty.Number, To: cty.String, Kind: "conv.a"})
	r.RegisterConverter(Converter{
		Name: "cast", Priority: 40, From: cty.DynamicPseudoType, To: cty.String, Kind: "conv.cast",
		Settings: map[string]cty.Value{"type": cty.StringVal("string")},
	})

	names := []string{}
	for _, c := range r.Converters() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"a", "b", "cast"}, names)

	spec, ok := r.Converter(cty.Number, cty.String)
	require.True(t, ok)
	assert.Equal(t, "conv.a", spec.Kind, "ties are broken by name")

	spec, ok = r.Converter(cty.DynamicPseudoType, cty.String)
	require.True(t, ok)
	assert.Equal(t, "conv.cast", spec.Kind)
	assert.Equal(t, "string", spec.Settings["type"].AsString())

	_, ok = r.Converter(cty.Bool, cty.String)
	assert.False(t, ok, "casts only apply to sources of type any")

	assert.Panics(t, func() {
		r.RegisterConverter(Converter{Name: "a", From: cty.Bool, To: cty.String, Kind: "conv.a"})
	})
}

func TestValidate(t *testing.T) {
	t.Run("complete registry", func(t *testing.T) {
		r := New(WithCache(typecache.New()))
		r.RegisterKind(dataKind("conv.a", AutoConvert))
		r.RegisterConverter(Converter{Name: "a", From: cty.Number, To: cty.String, Kind: "conv.a"})
		assert.NoError(t, r.Validate(context.Background()))
	})

	t.Run("reports every problem", func(t *testing.T) {
		r := New(WithCache(typecache.New()))
		r.RegisterKind(&Kind{Name: "bad.flow", Caps: HasFlowInput | EntryPoint, Ports: Static()})
		r.RegisterKind(&Kind{Name: "bad.data", Emit: func(EmitContext) error { return nil }})
		r.RegisterKind(dataKind("plain", 0))
		r.RegisterConverter(Converter{Name: "ghost", From: cty.Number, To: cty.String, Kind: "missing"})
		r.RegisterConverter(Converter{Name: "wrong", From: cty.Bool, To: cty.String, Kind: "plain"})

		err := r.Validate(context.Background())
		require.Error(t, err)
		for _, want := range []string{
			"kind 'bad.flow': missing code generator",
			"kind 'bad.flow': flow kind without Exec",
			"kind 'bad.flow': entry points cannot have a flow input",
			"kind 'bad.data': missing port function",
			"kind 'bad.data': data kind without Eval",
			"converter 'ghost': unknown kind 'missing'",
			"converter 'wrong': kind 'plain' is not a converter kind",
		} {
			assert.Contains(t, err.Error(), want)
		}
	})
}

func TestCapabilities(t *testing.T) {
	c := HasFlowInput | HasFlowOutput | CoroutineCapable
	assert.True(t, c.Has(HasFlowInput|CoroutineCapable))
	assert.False(t, c.Has(Impure))
	assert.Equal(t, "flow_in|flow_out|coroutine", c.String())
	assert.Equal(t, "data", Capability(0).String())
}
