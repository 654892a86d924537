package graph

import (
	"iter"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

// Predicate selects elements during Find.
type Predicate func(*Element) bool

// IsNode matches every node element.
func IsNode(e *Element) bool { return e.Node != nil }

// IsNodeKind matches nodes of the given kind.
func IsNodeKind(kind string) Predicate {
	return func(e *Element) bool { return e.Node != nil && e.Node.Kind == kind }
}

// Find yields the descendants of root that satisfy pred, depth-first in
// sibling order. Without recursive only direct children are visited. The
// sequence is lazy and can be ranged over any number of times; elements
// removed while iterating are skipped.
func (g *Graph) Find(root nodeid.ID, pred Predicate, recursive bool) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		start, ok := g.elements[root]
		if !ok {
			return
		}
		var walk func(e *Element) bool
		walk = func(e *Element) bool {
			for _, id := range append([]nodeid.ID(nil), e.Children...) {
				child, ok := g.elements[id]
				if !ok {
					continue
				}
				if pred == nil || pred(child) {
					if !yield(child) {
						return false
					}
				}
				if recursive && !walk(child) {
					return false
				}
			}
			return true
		}
		walk(start)
	}
}

// Nodes yields every node under root, recursively, in element order.
func (g *Graph) Nodes(root nodeid.ID) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for e := range g.Find(root, IsNode, true) {
			if !yield(e.Node) {
				return
			}
		}
	}
}

// IsDescendant reports whether id lies under ancestor.
func (g *Graph) IsDescendant(id, ancestor nodeid.ID) bool {
	e, ok := g.elements[id]
	if !ok {
		return false
	}
	for cur, ok := g.elements[e.Parent]; ok; cur, ok = g.elements[cur.Parent] {
		if cur.ID == ancestor {
			return true
		}
	}
	return false
}

// TopLevelNodes yields the nodes of the main program, excluding those inside
// function and constructor bodies.
func (g *Graph) TopLevelNodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range g.Nodes(g.root) {
			if body, _ := g.BodyOf(n.ID); body.IsValid() {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}
