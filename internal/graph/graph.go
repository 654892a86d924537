package graph

import (
	"sort"

	"github.com/google/uuid"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

// Graph is the container of one node graph: its element tree, connections
// and member declarations.
type Graph struct {
	// ID is a UUID identifying the graph across processes. It is embedded in
	// generated code and diagnostics.
	ID   string
	Name string
	// Metadata is free-form editor data. It is persisted but is not part of
	// the content hash.
	Metadata map[string]string

	kinds     Kinds
	nextID    int
	root      nodeid.ID
	elements  map[nodeid.ID]*Element
	conns     map[nodeid.ConnID]*Connection
	connOrder []nodeid.ConnID
	members   memberTable
	observers []func(Event)
}

// New creates an empty graph with a fresh id and a root element.
func New(name string, kinds Kinds) *Graph {
	return NewWithID(uuid.NewString(), name, kinds)
}

// NewWithID creates an empty graph with the given id. Deserialization uses it
// to keep ids stable.
func NewWithID(id, name string, kinds Kinds) *Graph {
	g := &Graph{
		ID:       id,
		Name:     name,
		Metadata: make(map[string]string),
		kinds:    kinds,
		elements: make(map[nodeid.ID]*Element),
		conns:    make(map[nodeid.ConnID]*Connection),
	}
	root := &Element{ID: g.allocID(), Name: name, Kind: ElementRoot, graph: g}
	g.elements[root.ID] = root
	g.root = root.ID
	return g
}

// Kinds returns the kind catalog the graph was created with.
func (g *Graph) Kinds() Kinds {
	return g.kinds
}

// Root returns the id of the root element.
func (g *Graph) Root() nodeid.ID {
	return g.root
}

// NextID is the next id the graph will hand out. It is persisted so that ids
// are never reused.
func (g *Graph) NextID() int {
	return g.nextID + 1
}

// ReserveIDs moves the id counter forward so that the next allocated id is at
// least next.
func (g *Graph) ReserveIDs(next int) {
	if next-1 > g.nextID {
		g.nextID = next - 1
	}
}

func (g *Graph) allocID() nodeid.ID {
	g.nextID++
	return nodeid.ID(g.nextID)
}

// Element returns the element with the given id.
func (g *Graph) Element(id nodeid.ID) (*Element, bool) {
	e, ok := g.elements[id]
	return e, ok
}

// NodeIDs returns the ids of every node in ascending order.
func (g *Graph) NodeIDs() []nodeid.ID {
	ids := make([]nodeid.ID, 0, len(g.elements))
	for id, e := range g.elements {
		if e.Node != nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of elements, root included.
func (g *Graph) Len() int {
	return len(g.elements)
}
