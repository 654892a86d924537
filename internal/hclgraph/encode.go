package hclgraph

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

// EncodeOptions tunes the encoding.
type EncodeOptions struct {
	// OmitMetadata leaves out the metadata attribute. The canonical form used
	// for hashing sets it.
	OmitMetadata bool
}

// Encode writes graphs in the HCL format.
func Encode(opts EncodeOptions, graphs ...*graph.Graph) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	for i, g := range graphs {
		if i > 0 {
			f.Body().AppendNewline()
		}
		if err := encodeGraph(f.Body(), g, opts); err != nil {
			return nil, fmt.Errorf("encoding graph %q: %w", g.Name, err)
		}
	}
	return hclwrite.Format(f.Bytes()), nil
}

func typeTokens(t cty.Type) hclwrite.Tokens {
	return hclwrite.Tokens{{Type: hclsyntax.TokenIdent, Bytes: []byte(types.String(t))}}
}

func encodeGraph(root *hclwrite.Body, g *graph.Graph, opts EncodeOptions) error {
	body := root.AppendNewBlock("graph", []string{g.Name}).Body()
	body.SetAttributeValue("id", cty.StringVal(g.ID))
	body.SetAttributeValue("next_id", cty.NumberIntVal(int64(g.NextID())))
	if !opts.OmitMetadata && len(g.Metadata) > 0 {
		meta := make(map[string]cty.Value, len(g.Metadata))
		for k, v := range g.Metadata {
			meta[k] = cty.StringVal(v)
		}
		body.SetAttributeValue("metadata", cty.ObjectVal(meta))
	}

	for _, v := range g.Variables() {
		encodeState(body, "variable", v.Name, v.Type, v.Default, v.Modifiers)
	}
	for _, p := range g.Properties() {
		encodeState(body, "property", p.Name, p.Type, p.Default, p.Modifiers)
	}

	if err := encodeChildren(body, g, g.Root()); err != nil {
		return err
	}

	for _, c := range g.Connections() {
		body.AppendNewline()
		cb := body.AppendNewBlock("connection", nil).Body()
		cb.SetAttributeValue("id", cty.NumberIntVal(int64(c.ID)))
		cb.SetAttributeValue("from", cty.StringVal(c.From.String()))
		cb.SetAttributeValue("to", cty.StringVal(c.To.String()))
		if c.Proxy {
			cb.SetAttributeValue("proxy", cty.True)
		}
	}
	return nil
}

func encodeState(body *hclwrite.Body, block, name string, t cty.Type, def cty.Value, modifiers []string) {
	body.AppendNewline()
	b := body.AppendNewBlock(block, []string{name}).Body()
	b.SetAttributeRaw("type", typeTokens(t))
	if def != cty.NilVal && !def.IsNull() {
		b.SetAttributeValue("default", def)
	}
	if len(modifiers) > 0 {
		vals := make([]cty.Value, 0, len(modifiers))
		for _, m := range modifiers {
			vals = append(vals, cty.StringVal(m))
		}
		b.SetAttributeValue("modifiers", cty.ListVal(vals))
	}
}

// encodeChildren writes the children of parent in pre-order.
func encodeChildren(body *hclwrite.Body, g *graph.Graph, parent nodeid.ID) error {
	e, ok := g.Element(parent)
	if !ok {
		return fmt.Errorf("element %s not found", parent)
	}
	for _, id := range e.Children {
		child, ok := g.Element(id)
		if !ok {
			return fmt.Errorf("element %s not found", id)
		}
		body.AppendNewline()
		switch child.Kind {
		case graph.ElementNode:
			encodeNode(body, child)
		case graph.ElementGroup:
			gb := body.AppendNewBlock("group", []string{child.Name}).Body()
			gb.SetAttributeValue("id", cty.NumberIntVal(int64(child.ID)))
			gb.SetAttributeValue("parent", cty.NumberIntVal(int64(child.Parent)))
		case graph.ElementBody:
			if err := encodeBody(body, g, child); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected %s element %s", child.Kind, child.ID)
		}
		if err := encodeChildren(body, g, child.ID); err != nil {
			return err
		}
	}
	return nil
}

func encodeBody(body *hclwrite.Body, g *graph.Graph, e *graph.Element) error {
	if f := g.Function(e.Name); f != nil && f.Body == e.ID {
		fb := body.AppendNewBlock("function", []string{f.Name}).Body()
		fb.SetAttributeValue("id", cty.NumberIntVal(int64(f.Body)))
		if f.Returns != cty.NilType {
			fb.SetAttributeRaw("returns", typeTokens(f.Returns))
		}
		for _, p := range f.Params {
			pb := fb.AppendNewBlock("param", []string{p.Name}).Body()
			pb.SetAttributeRaw("type", typeTokens(p.Type))
		}
		return nil
	}
	if c := g.Constructor(e.Name); c != nil && c.Body == e.ID {
		cb := body.AppendNewBlock("constructor", []string{c.Name}).Body()
		cb.SetAttributeValue("id", cty.NumberIntVal(int64(c.Body)))
		return nil
	}
	return fmt.Errorf("body element %s belongs to no member", e.ID)
}

func encodeNode(body *hclwrite.Body, e *graph.Element) {
	n := e.Node
	nb := body.AppendNewBlock("node", []string{e.Name}).Body()
	nb.SetAttributeValue("id", cty.NumberIntVal(int64(n.ID)))
	nb.SetAttributeValue("parent", cty.NumberIntVal(int64(e.Parent)))
	nb.SetAttributeValue("kind", cty.StringVal(n.Kind))
	if n.AutoInserted {
		nb.SetAttributeValue("auto", cty.True)
	}
	if len(n.Settings) > 0 {
		nb.SetAttributeValue("settings", valueMap(n.Settings))
	}
	if len(n.Inputs) > 0 {
		nb.SetAttributeValue("inputs", valueMap(n.Inputs))
	}
}

// valueMap renders settings and inputs as an object; hclwrite emits object
// attributes in sorted order.
func valueMap(m map[string]cty.Value) cty.Value {
	return cty.ObjectVal(m)
}
