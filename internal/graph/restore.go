package graph

import (
	"slices"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

// The Restore functions rebuild a graph from a persisted description while
// keeping every id. They check structure but never insert helpers or replace
// edges; Validate reports what they let through.

func (g *Graph) claimID(id nodeid.ID) error {
	if !id.IsValid() {
		return g.structural(nodeid.None, "invalid element id %d", id)
	}
	if _, taken := g.elements[id]; taken {
		return g.structural(id, "element id is already in use")
	}
	if _, taken := g.conns[nodeid.ConnID(id)]; taken {
		return g.structural(id, "element id is already in use by a connection")
	}
	g.ReserveIDs(int(id) + 1)
	return nil
}

// RestoreElement recreates a group or body element.
func (g *Graph) RestoreElement(parent, id nodeid.ID, name string, kind ElementKind) (*Element, error) {
	if kind == ElementNode || kind == ElementRoot {
		return nil, g.structural(id, "RestoreElement cannot create %s elements", kind)
	}
	p, ok := g.elements[parent]
	if !ok || p.Kind == ElementNode {
		return nil, g.structural(id, "invalid parent element %s", parent)
	}
	if err := g.claimID(id); err != nil {
		return nil, err
	}
	e := &Element{ID: id, Name: name, Kind: kind, Parent: parent, graph: g}
	g.elements[id] = e
	p.Children = append(p.Children, id)
	return e, nil
}

// RestoreNode recreates a node with its id.
func (g *Graph) RestoreNode(parent, id nodeid.ID, spec NodeSpec, auto bool) (*Node, error) {
	p, ok := g.elements[parent]
	if !ok || p.Kind == ElementNode {
		return nil, g.structural(id, "invalid parent element %s", parent)
	}
	n := &Node{
		ID:           id,
		Kind:         spec.Kind,
		Settings:     copyValues(spec.Settings),
		Inputs:       copyValues(spec.Inputs),
		AutoInserted: auto,
	}
	ports, err := g.kinds.Ports(g, n)
	if err != nil {
		return nil, g.structural(id, "registering %s node: %v", spec.Kind, err)
	}
	if err := g.claimID(id); err != nil {
		return nil, err
	}
	name := spec.Name
	if name == "" {
		name = spec.Kind
	}
	e := &Element{ID: id, Name: name, Kind: ElementNode, Parent: parent, Node: n, graph: g}
	g.elements[id] = e
	p.Children = append(p.Children, id)
	n.Ports = bindPorts(id, ports)
	g.emit(Event{Type: NodeAdded, Element: id})
	return n, nil
}

// RestoreFunction declares a function whose body element has the given id.
func (g *Graph) RestoreFunction(name string, params []Param, returns cty.Type, body nodeid.ID) (*Function, error) {
	if err := g.checkMemberName(name); err != nil {
		return nil, err
	}
	if _, err := g.RestoreElement(g.root, body, name, ElementBody); err != nil {
		return nil, err
	}
	f := &Function{Name: name, Params: slices.Clone(params), Returns: returns, Body: body}
	g.members.functions = append(g.members.functions, f)
	return f, nil
}

// RestoreConstructor declares a constructor whose body element has the given
// id.
func (g *Graph) RestoreConstructor(name string, body nodeid.ID) (*Constructor, error) {
	if err := g.checkMemberName(name); err != nil {
		return nil, err
	}
	if _, err := g.RestoreElement(g.root, body, name, ElementBody); err != nil {
		return nil, err
	}
	c := &Constructor{Name: name, Body: body}
	g.members.constructors = append(g.members.constructors, c)
	return c, nil
}

// RestoreConnection recreates a connection with its id.
func (g *Graph) RestoreConnection(id nodeid.ConnID, from, to nodeid.PortRef, proxy bool) (*Connection, error) {
	src, dst, err := g.checkEndpoints(from, to)
	if err != nil {
		return nil, err
	}
	if src.Channel == Value && !types.Compatible(src.Type, dst.Type) {
		return nil, &TypeError{
			GraphID: g.ID, From: from, To: to,
			Message: types.String(src.Type) + " is not assignable to " + types.String(dst.Type),
		}
	}
	if err := g.claimID(nodeid.ID(id)); err != nil {
		return nil, err
	}
	return g.link(id, from, to, src.Channel, proxy), nil
}

// RestoreOrder sets the sibling order of parent's children. order must be a
// permutation of the current children.
func (g *Graph) RestoreOrder(parent nodeid.ID, order []nodeid.ID) error {
	p, ok := g.elements[parent]
	if !ok {
		return g.structural(parent, "parent element not found")
	}
	if len(order) != len(p.Children) {
		return g.structural(parent, "child order lists %d elements, parent has %d", len(order), len(p.Children))
	}
	current := make(map[nodeid.ID]bool, len(p.Children))
	for _, id := range p.Children {
		current[id] = true
	}
	for _, id := range order {
		if !current[id] {
			return g.structural(parent, "element %s is not a child or is listed twice", id)
		}
		delete(current, id)
	}
	p.Children = slices.Clone(order)
	return nil
}
