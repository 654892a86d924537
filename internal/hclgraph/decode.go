package hclgraph

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/nodegraph/internal/ctxlog"
	"github.com/specialistvlad/nodegraph/internal/fsutil"
	"github.com/specialistvlad/nodegraph/internal/graph"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

// Decode parses graphs from src. filename is used in diagnostics only. Every
// graph is validated before it is returned.
func Decode(ctx context.Context, src []byte, filename string, kinds graph.Kinds) ([]*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	graphs := make([]*graph.Graph, 0, len(root.Graphs))
	for _, gb := range root.Graphs {
		g, err := decodeGraph(gb, kinds)
		if err != nil {
			return nil, fmt.Errorf("%s: graph %q: %w", filename, gb.Name, err)
		}
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("%s: graph %q is invalid: %w", filename, gb.Name, err)
		}
		logger.Debug("Decoded graph.", "file", filename, "graph", g.Name, "elements", g.Len())
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// element is one element block with its position in the file.
type element struct {
	block  *hclsyntax.Block
	id     nodeid.ID
	parent nodeid.ID
}

func decodeGraph(gb *graphBlock, kinds graph.Kinds) (*graph.Graph, error) {
	body, ok := gb.Remain.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("graph body is not native HCL syntax")
	}
	g := graph.NewWithID(gb.ID, gb.Name, kinds)
	for k, v := range gb.Metadata {
		g.Metadata[k] = v
	}

	// Members go first: node ports depend on them. Bodies are created with
	// their members.
	var groups, nodes, order []element
	var conns []*hclsyntax.Block
	for _, blk := range body.Blocks {
		switch blk.Type {
		case "variable", "property":
			if err := decodeState(g, blk); err != nil {
				return nil, err
			}
		case "function", "constructor":
			id, err := decodeMember(g, blk)
			if err != nil {
				return nil, err
			}
			order = append(order, element{block: blk, id: id, parent: g.Root()})
		case "group":
			var b groupBlock
			if diags := gohcl.DecodeBody(blk.Body, nil, &b); diags.HasErrors() {
				return nil, diags
			}
			e := element{block: blk, id: nodeid.ID(b.ID), parent: nodeid.ID(b.Parent)}
			groups = append(groups, e)
			order = append(order, e)
		case "node":
			var b nodeBlock
			if diags := gohcl.DecodeBody(blk.Body, nil, &b); diags.HasErrors() {
				return nil, diags
			}
			e := element{block: blk, id: nodeid.ID(b.ID), parent: nodeid.ID(b.Parent)}
			nodes = append(nodes, e)
			order = append(order, e)
		case "connection":
			conns = append(conns, blk)
		default:
			return nil, fmt.Errorf("%s: unexpected block %q", blk.DefRange(), blk.Type)
		}
	}

	for _, e := range groups {
		if _, err := g.RestoreElement(e.parent, e.id, label(e.block), graph.ElementGroup); err != nil {
			return nil, err
		}
	}
	for _, e := range nodes {
		if err := decodeNode(g, e); err != nil {
			return nil, err
		}
	}
	for _, blk := range conns {
		if err := decodeConnection(g, blk); err != nil {
			return nil, err
		}
	}
	if err := restoreOrder(g, order); err != nil {
		return nil, err
	}
	g.ReserveIDs(gb.NextID)
	return g, nil
}

func label(blk *hclsyntax.Block) string {
	if len(blk.Labels) == 0 {
		return ""
	}
	return blk.Labels[0]
}

// typeOf converts an attribute expression to a type. The second result is
// false for an absent optional attribute.
func typeOf(expr hcl.Expression) (cty.Type, bool, error) {
	if _, ok := expr.(hclsyntax.Expression); !ok {
		return cty.NilType, false, nil
	}
	t, err := types.FromExpr(expr)
	if err != nil {
		return cty.NilType, false, fmt.Errorf("%s: %w", expr.Range(), err)
	}
	return t, true, nil
}

func decodeState(g *graph.Graph, blk *hclsyntax.Block) error {
	var b stateBlock
	if diags := gohcl.DecodeBody(blk.Body, nil, &b); diags.HasErrors() {
		return diags
	}
	t, _, err := typeOf(b.Type)
	if err != nil {
		return err
	}
	def := cty.NilVal
	if b.Default != nil {
		if def, err = normalize(*b.Default); err != nil {
			return fmt.Errorf("%s: %w", blk.DefRange(), err)
		}
	}
	if blk.Type == "variable" {
		_, err = g.AddVariable(graph.Variable{Name: label(blk), Type: t, Default: def, Modifiers: b.Modifiers})
	} else {
		_, err = g.AddProperty(graph.Property{Name: label(blk), Type: t, Default: def, Modifiers: b.Modifiers})
	}
	return err
}

func decodeMember(g *graph.Graph, blk *hclsyntax.Block) (nodeid.ID, error) {
	if blk.Type == "constructor" {
		var b constructorBlock
		if diags := gohcl.DecodeBody(blk.Body, nil, &b); diags.HasErrors() {
			return nodeid.None, diags
		}
		c, err := g.RestoreConstructor(label(blk), nodeid.ID(b.ID))
		if err != nil {
			return nodeid.None, err
		}
		return c.Body, nil
	}

	var b functionBlock
	if diags := gohcl.DecodeBody(blk.Body, nil, &b); diags.HasErrors() {
		return nodeid.None, diags
	}
	returns, ok, err := typeOf(b.Returns)
	if err != nil {
		return nodeid.None, err
	}
	if !ok {
		returns = cty.NilType
	}
	params := make([]graph.Param, 0, len(b.Params))
	for _, p := range b.Params {
		t, _, err := typeOf(p.Type)
		if err != nil {
			return nodeid.None, err
		}
		params = append(params, graph.Param{Name: p.Name, Type: t})
	}
	f, err := g.RestoreFunction(label(blk), params, returns, nodeid.ID(b.ID))
	if err != nil {
		return nodeid.None, err
	}
	return f.Body, nil
}

func decodeNode(g *graph.Graph, e element) error {
	var b nodeBlock
	if diags := gohcl.DecodeBody(e.block.Body, nil, &b); diags.HasErrors() {
		return diags
	}
	settings, err := valuesOf(b.Settings)
	if err != nil {
		return fmt.Errorf("%s: settings: %w", e.block.DefRange(), err)
	}
	inputs, err := valuesOf(b.Inputs)
	if err != nil {
		return fmt.Errorf("%s: inputs: %w", e.block.DefRange(), err)
	}
	spec := graph.NodeSpec{Kind: b.Kind, Name: label(e.block), Settings: settings, Inputs: inputs}
	_, err = g.RestoreNode(e.parent, e.id, spec, b.Auto)
	return err
}

func valuesOf(v *cty.Value) (map[string]cty.Value, error) {
	if v == nil || v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}
	out := make(map[string]cty.Value)
	for k, e := range v.AsValueMap() {
		n, err := normalize(e)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

// normalize rounds numbers to float64 precision, the precision values have
// at run time, so a decoded graph equals the one that was encoded.
func normalize(v cty.Value) (cty.Value, error) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(cty.Number) {
		return v, nil
	}
	f, err := types.Float(v)
	if err != nil {
		return cty.NilVal, err
	}
	return types.Number(f)
}

func decodeConnection(g *graph.Graph, blk *hclsyntax.Block) error {
	var b connectionBlock
	if diags := gohcl.DecodeBody(blk.Body, nil, &b); diags.HasErrors() {
		return diags
	}
	from, err := nodeid.ParseRef(b.From)
	if err != nil {
		return fmt.Errorf("%s: %w", blk.DefRange(), err)
	}
	to, err := nodeid.ParseRef(b.To)
	if err != nil {
		return fmt.Errorf("%s: %w", blk.DefRange(), err)
	}
	_, err = g.RestoreConnection(nodeid.ConnID(b.ID), from, to, b.Proxy)
	return err
}

// restoreOrder makes each parent's children follow the file order.
func restoreOrder(g *graph.Graph, order []element) error {
	byParent := map[nodeid.ID][]nodeid.ID{}
	var parents []nodeid.ID
	for _, e := range order {
		if _, seen := byParent[e.parent]; !seen {
			parents = append(parents, e.parent)
		}
		byParent[e.parent] = append(byParent[e.parent], e.id)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })
	for _, p := range parents {
		if err := g.RestoreOrder(p, byParent[p]); err != nil {
			return err
		}
	}
	return nil
}

// LoadFiles decodes every .hcl file under paths. Directories are walked;
// paths that do not exist are skipped.
func LoadFiles(ctx context.Context, kinds graph.Kinds, paths ...string) ([]*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := fsutil.FindFiles(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	var graphs []*graph.Graph
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		gs, err := Decode(ctx, src, file, kinds)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, gs...)
	}
	logger.Debug("HCL loading complete.", "graphs", len(graphs))
	return graphs, nil
}
