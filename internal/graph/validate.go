package graph

import (
	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/types"
)

// Validate checks the whole graph and returns every problem found, or nil.
// It runs after deserialization and before generation, when edits were not
// made through Connect.
func (g *Graph) Validate() error {
	var result *multierror.Error

	for _, id := range g.NodeIDs() {
		n := g.elements[id].Node
		if _, err := g.kinds.Ports(g, n); err != nil {
			result = multierror.Append(result, g.structural(id, "%s node: %v", n.Kind, err))
		}
	}

	producers := map[nodeid.PortRef]int{}
	for _, c := range g.Connections() {
		src, ok := g.Port(c.From)
		if !ok {
			result = multierror.Append(result, g.structural(c.From.Node, "connection %d: unknown port %s", c.ID, c.From))
			continue
		}
		dst, ok := g.Port(c.To)
		if !ok {
			result = multierror.Append(result, g.structural(c.To.Node, "connection %d: unknown port %s", c.ID, c.To))
			continue
		}
		switch {
		case src.Direction != Output || dst.Direction != Input:
			result = multierror.Append(result, g.structural(c.To.Node, "connection %d: must run from an output to an input", c.ID))
		case src.Channel != dst.Channel || src.Channel != c.Channel:
			result = multierror.Append(result, g.structural(c.To.Node, "connection %d: channel mismatch", c.ID))
		case c.Channel == Value && !types.Compatible(src.Type, dst.Type):
			result = multierror.Append(result, &TypeError{
				GraphID: g.ID, From: c.From, To: c.To,
				Message: types.String(src.Type) + " is not assignable to " + types.String(dst.Type),
			})
		}
		if c.Channel == Value {
			producers[c.To]++
			if producers[c.To] == 2 {
				result = multierror.Append(result, g.structural(c.To.Node, "value input %s has more than one producer", c.To))
			}
		}
	}

	if err := g.detectValueCycles(); err != nil {
		result = multierror.Append(result, err)
	}

	for _, f := range g.members.functions {
		if _, ok := g.elements[f.Body]; !ok {
			result = multierror.Append(result, g.structural(f.Body, "function %q has no body", f.Name))
			continue
		}
		if _, err := g.FunctionEntry(f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, c := range g.members.constructors {
		if _, ok := g.elements[c.Body]; !ok {
			result = multierror.Append(result, g.structural(c.Body, "constructor %q has no body", c.Name))
		}
	}

	return result.ErrorOrNil()
}

// detectValueCycles runs a depth-first search over value edges with the
// classic temporary/permanent marking.
func (g *Graph) detectValueCycles() error {
	next := map[nodeid.ID][]nodeid.ID{}
	for _, c := range g.Connections() {
		if c.Channel == Value {
			next[c.From.Node] = append(next[c.From.Node], c.To.Node)
		}
	}

	permanent := map[nodeid.ID]bool{}
	temporary := map[nodeid.ID]bool{}

	var visit func(id nodeid.ID) error
	visit = func(id nodeid.ID) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return g.structural(id, "value cycle detected involving node %s", id)
		}
		temporary[id] = true
		for _, dep := range next[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.NodeIDs() {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}
