package graph

import (
	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

// ElementKind distinguishes the roles an element can play in the tree.
type ElementKind int

const (
	// ElementRoot is the single top-level element of a graph.
	ElementRoot ElementKind = iota
	// ElementGroup is a purely organisational container.
	ElementGroup
	// ElementNode carries a Node.
	ElementNode
	// ElementBody owns the node tree of a function or constructor.
	ElementBody
)

func (k ElementKind) String() string {
	switch k {
	case ElementRoot:
		return "root"
	case ElementGroup:
		return "group"
	case ElementNode:
		return "node"
	case ElementBody:
		return "body"
	default:
		return "unknown"
	}
}

// ParseElementKind is the inverse of ElementKind.String.
func ParseElementKind(s string) (ElementKind, bool) {
	for _, k := range []ElementKind{ElementRoot, ElementGroup, ElementNode, ElementBody} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Element is one entry of the element tree.
type Element struct {
	ID       nodeid.ID
	Name     string
	Kind     ElementKind
	Parent   nodeid.ID
	Children []nodeid.ID

	// Node is set when Kind is ElementNode.
	Node *Node

	graph *Graph
}

// Graph returns the graph that owns the element. It is nil once the element
// has been destroyed.
func (e *Element) Graph() *Graph {
	return e.graph
}

func (e *Element) removeChild(id nodeid.ID) {
	for i, c := range e.Children {
		if c == id {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return
		}
	}
}

// Attach moves child under parent, appending it to the parent's children.
func (g *Graph) Attach(parent, child nodeid.ID) error {
	return g.AttachAt(parent, child, -1)
}

// AttachAt moves child under parent at the given sibling index. A negative
// or out of range index appends.
func (g *Graph) AttachAt(parent, child nodeid.ID, index int) error {
	p, ok := g.elements[parent]
	if !ok {
		return g.structural(parent, "parent element not found")
	}
	c, ok := g.elements[child]
	if !ok {
		return g.structural(child, "element not found")
	}
	if c.Kind == ElementRoot {
		return g.structural(child, "the root element cannot be moved")
	}
	if c.Kind == ElementBody {
		return g.structural(child, "member bodies cannot be moved")
	}
	if p.Kind == ElementNode {
		return g.structural(parent, "nodes cannot own child elements")
	}
	for cur := p; cur != nil; cur = g.elements[cur.Parent] {
		if cur.ID == child {
			return g.structural(child, "moving under element %s would create a cycle", parent)
		}
	}

	if old, ok := g.elements[c.Parent]; ok {
		old.removeChild(child)
	}
	c.Parent = parent
	if index < 0 || index >= len(p.Children) {
		p.Children = append(p.Children, child)
	} else {
		p.Children = append(p.Children, nodeid.None)
		copy(p.Children[index+1:], p.Children[index:])
		p.Children[index] = child
	}
	g.emit(Event{Type: ElementMoved, Element: child})
	return nil
}

// AddGroup creates an empty group element under parent.
func (g *Graph) AddGroup(parent nodeid.ID, name string) (*Element, error) {
	return g.newElement(parent, name, ElementGroup)
}

func (g *Graph) newElement(parent nodeid.ID, name string, kind ElementKind) (*Element, error) {
	p, ok := g.elements[parent]
	if !ok {
		return nil, g.structural(parent, "parent element not found")
	}
	if p.Kind == ElementNode {
		return nil, g.structural(parent, "nodes cannot own child elements")
	}
	e := &Element{ID: g.allocID(), Name: name, Kind: kind, Parent: parent, graph: g}
	g.elements[e.ID] = e
	p.Children = append(p.Children, e.ID)
	return e, nil
}

// Destroy removes an element and all of its descendants, post-order. For
// every node, the connections touching its ports are removed before the node.
func (g *Graph) Destroy(id nodeid.ID) error {
	e, ok := g.elements[id]
	if !ok {
		return g.structural(id, "element not found")
	}
	if e.Kind == ElementRoot {
		return g.structural(id, "the root element cannot be destroyed")
	}
	if m := g.memberOwning(id); m != "" {
		return g.structural(id, "body of member %q is removed with RemoveMember", m)
	}
	g.destroy(e)
	return nil
}

func (g *Graph) destroy(e *Element) {
	for len(e.Children) > 0 {
		child := g.elements[e.Children[len(e.Children)-1]]
		g.destroy(child)
	}
	if e.Node != nil {
		for _, c := range g.connectionsOf(e.ID) {
			g.disconnect(c, false)
		}
	}
	if p, ok := g.elements[e.Parent]; ok {
		p.removeChild(e.ID)
	}
	delete(g.elements, e.ID)
	e.graph = nil
	if e.Node != nil {
		g.emit(Event{Type: NodeRemoved, Element: e.ID})
	} else {
		g.emit(Event{Type: ElementRemoved, Element: e.ID})
	}

	// Helpers that fed this node may now be orphaned.
	g.pruneOrphans()
}
