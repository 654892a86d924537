package graph

import (
	"maps"
	"slices"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
)

// checkpoint is a copy of everything an edit can change. Edits made of
// several steps take one first and restore it when a later step fails, so
// callers never observe half of an edit. Restoring writes the saved values
// back into the original pointers, keeping *Node and *Element handles valid.
type checkpoint struct {
	nextID    int
	elements  map[nodeid.ID]*Element
	elemVals  map[nodeid.ID]Element
	nodeVals  map[nodeid.ID]Node
	conns     map[nodeid.ConnID]*Connection
	connVals  map[nodeid.ConnID]Connection
	connOrder []nodeid.ConnID

	members      memberTable
	variables    []Variable
	properties   []Property
	functions    []Function
	constructors []Constructor
}

func (g *Graph) checkpoint() *checkpoint {
	cp := &checkpoint{
		nextID:    g.nextID,
		elements:  maps.Clone(g.elements),
		elemVals:  make(map[nodeid.ID]Element, len(g.elements)),
		nodeVals:  make(map[nodeid.ID]Node),
		conns:     maps.Clone(g.conns),
		connVals:  make(map[nodeid.ConnID]Connection, len(g.conns)),
		connOrder: slices.Clone(g.connOrder),
		members: memberTable{
			variables:    slices.Clone(g.members.variables),
			properties:   slices.Clone(g.members.properties),
			functions:    slices.Clone(g.members.functions),
			constructors: slices.Clone(g.members.constructors),
		},
	}
	for id, e := range g.elements {
		v := *e
		v.Children = slices.Clone(e.Children)
		cp.elemVals[id] = v
		if e.Node != nil {
			n := *e.Node
			n.Settings = maps.Clone(e.Node.Settings)
			n.Inputs = maps.Clone(e.Node.Inputs)
			n.Ports = slices.Clone(e.Node.Ports)
			cp.nodeVals[id] = n
		}
	}
	for id, c := range g.conns {
		cp.connVals[id] = *c
	}
	for _, v := range g.members.variables {
		cp.variables = append(cp.variables, *v)
	}
	for _, p := range g.members.properties {
		cp.properties = append(cp.properties, *p)
	}
	for _, f := range g.members.functions {
		cp.functions = append(cp.functions, *f)
	}
	for _, c := range g.members.constructors {
		cp.constructors = append(cp.constructors, *c)
	}
	return cp
}

// restore puts the graph back into the checkpointed state. Elements created
// since the checkpoint are detached from the graph.
func (g *Graph) restore(cp *checkpoint) {
	for id, e := range g.elements {
		if _, ok := cp.elements[id]; !ok {
			e.graph = nil
		}
	}
	g.nextID = cp.nextID
	g.elements = maps.Clone(cp.elements)
	for id, e := range g.elements {
		*e = cp.elemVals[id]
		if e.Node != nil {
			*e.Node = cp.nodeVals[id]
		}
	}
	g.conns = maps.Clone(cp.conns)
	for id, c := range g.conns {
		*c = cp.connVals[id]
	}
	g.connOrder = slices.Clone(cp.connOrder)

	g.members = memberTable{
		variables:    slices.Clone(cp.members.variables),
		properties:   slices.Clone(cp.members.properties),
		functions:    slices.Clone(cp.members.functions),
		constructors: slices.Clone(cp.members.constructors),
	}
	for i, v := range g.members.variables {
		*v = cp.variables[i]
	}
	for i, p := range g.members.properties {
		*p = cp.properties[i]
	}
	for i, f := range g.members.functions {
		*f = cp.functions[i]
	}
	for i, c := range g.members.constructors {
		*c = cp.constructors[i]
	}
}
