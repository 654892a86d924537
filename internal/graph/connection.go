package graph

import (
	"sort"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/types"
)

// Connection is a directed edge from an output port to an input port.
type Connection struct {
	ID      nodeid.ConnID
	From    nodeid.PortRef
	To      nodeid.PortRef
	Channel Channel
	// Proxy is a layout hint for editors. It has no effect on execution.
	Proxy bool
}

// Connections returns every connection in registration order.
func (g *Graph) Connections() []*Connection {
	out := make([]*Connection, 0, len(g.connOrder))
	for _, id := range g.connOrder {
		out = append(out, g.conns[id])
	}
	return out
}

// Connection returns the connection with the given id.
func (g *Graph) Connection(id nodeid.ConnID) (*Connection, bool) {
	c, ok := g.conns[id]
	return c, ok
}

// Outgoing returns the connections leaving a port, in registration order.
func (g *Graph) Outgoing(ref nodeid.PortRef) []*Connection {
	var out []*Connection
	for _, id := range g.connOrder {
		if c := g.conns[id]; c.From == ref {
			out = append(out, c)
		}
	}
	return out
}

// Incoming returns the connections entering a port, in registration order.
func (g *Graph) Incoming(ref nodeid.PortRef) []*Connection {
	var out []*Connection
	for _, id := range g.connOrder {
		if c := g.conns[id]; c.To == ref {
			out = append(out, c)
		}
	}
	return out
}

// Producer returns the edge feeding a value input.
func (g *Graph) Producer(ref nodeid.PortRef) (*Connection, bool) {
	in := g.Incoming(ref)
	if len(in) == 0 {
		return nil, false
	}
	return in[len(in)-1], true
}

func (g *Graph) connectionsOf(node nodeid.ID) []*Connection {
	var out []*Connection
	for _, id := range g.connOrder {
		if c := g.conns[id]; c.From.Node == node || c.To.Node == node {
			out = append(out, c)
		}
	}
	return out
}

// Connect joins an output port to an input port.
//
// A rejected edge leaves the graph unmodified. When the value types differ
// and a converter applies, a helper node is inserted and the returned
// connection is the one entering to.
func (g *Graph) Connect(from, to nodeid.PortRef) (*Connection, error) {
	src, dst, err := g.checkEndpoints(from, to)
	if err != nil {
		return nil, err
	}
	if src.Channel == Flow {
		return g.link(g.allocConnID(), from, to, Flow, false), nil
	}
	if g.reaches(to.Node, from.Node) {
		return nil, g.structural(to.Node, "connecting %s to %s would create a value cycle", from, to)
	}
	if types.Compatible(src.Type, dst.Type) {
		g.replaceFeed(to)
		return g.link(g.allocConnID(), from, to, Value, false), nil
	}

	spec, ok := g.kinds.Converter(src.Type, dst.Type)
	if !ok {
		return nil, &TypeError{
			GraphID: g.ID, From: from, To: to,
			Message: "no conversion from " + types.String(src.Type) + " to " + types.String(dst.Type),
		}
	}
	probe := &Node{Kind: spec.Kind, Settings: copyValues(spec.Settings)}
	ports, err := g.kinds.Ports(g, probe)
	if err != nil {
		return nil, g.structural(to.Node, "converter %s: %v", spec.Kind, err)
	}
	in, out := findPort(ports, "in"), findPort(ports, "out")
	if in == nil || out == nil || !types.Compatible(src.Type, in.Type) || !types.Compatible(out.Type, dst.Type) {
		return nil, &TypeError{
			GraphID: g.ID, From: from, To: to,
			Message: "converter " + spec.Kind + " does not fit " + types.String(src.Type) + " to " + types.String(dst.Type),
		}
	}

	// The old producer goes only once the helper exists and feeds to.
	old := g.Incoming(to)
	helper, err := g.addNode(g.elements[to.Node].Parent, spec, true)
	if err != nil {
		return nil, err
	}
	g.link(g.allocConnID(), from, nodeid.Ref(helper.ID, "in"), Value, false)
	conn := g.link(g.allocConnID(), nodeid.Ref(helper.ID, "out"), to, Value, false)
	for _, c := range old {
		g.disconnect(c, true)
	}
	return conn, nil
}

func findPort(ports []*Port, name string) *Port {
	for _, p := range ports {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (g *Graph) checkEndpoints(from, to nodeid.PortRef) (*Port, *Port, error) {
	src, ok := g.Port(from)
	if !ok {
		return nil, nil, g.structural(from.Node, "unknown port %s", from)
	}
	dst, ok := g.Port(to)
	if !ok {
		return nil, nil, g.structural(to.Node, "unknown port %s", to)
	}
	if src.Direction != Output {
		return nil, nil, g.structural(from.Node, "%s is not an output port", from)
	}
	if dst.Direction != Input {
		return nil, nil, g.structural(to.Node, "%s is not an input port", to)
	}
	if src.Channel != dst.Channel {
		return nil, nil, g.structural(to.Node, "cannot connect %s port %s to %s port %s", src.Channel, from, dst.Channel, to)
	}
	if from.Node == to.Node {
		return nil, nil, g.structural(to.Node, "a node cannot connect to itself")
	}
	for _, c := range g.Incoming(to) {
		if c.From == from {
			return nil, nil, g.structural(to.Node, "%s is already connected to %s", from, to)
		}
	}
	return src, dst, nil
}

// reaches reports whether target is downstream of start along value edges.
func (g *Graph) reaches(start, target nodeid.ID) bool {
	seen := map[nodeid.ID]bool{}
	stack := []nodeid.ID{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == target {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		for _, id := range g.connOrder {
			if c := g.conns[id]; c.Channel == Value && c.From.Node == n {
				stack = append(stack, c.To.Node)
			}
		}
	}
	return false
}

func (g *Graph) allocConnID() nodeid.ConnID {
	return nodeid.ConnID(g.allocID())
}

func (g *Graph) link(id nodeid.ConnID, from, to nodeid.PortRef, ch Channel, proxy bool) *Connection {
	c := &Connection{ID: id, From: from, To: to, Channel: ch, Proxy: proxy}
	g.conns[id] = c
	g.connOrder = append(g.connOrder, id)
	g.emit(Event{Type: ConnectionAdded, Conn: id})
	return c
}

func (g *Graph) replaceFeed(to nodeid.PortRef) {
	for _, c := range g.Incoming(to) {
		g.disconnect(c, true)
	}
}

// Disconnect removes a connection and prunes auto-inserted helpers left
// without a consumer.
func (g *Graph) Disconnect(id nodeid.ConnID) error {
	c, ok := g.conns[id]
	if !ok {
		return g.structural(nodeid.None, "connection %d not found", id)
	}
	g.disconnect(c, true)
	return nil
}

func (g *Graph) disconnect(c *Connection, prune bool) {
	if _, ok := g.conns[c.ID]; !ok {
		return
	}
	delete(g.conns, c.ID)
	for i, id := range g.connOrder {
		if id == c.ID {
			g.connOrder = append(g.connOrder[:i], g.connOrder[i+1:]...)
			break
		}
	}
	g.emit(Event{Type: ConnectionRemoved, Conn: c.ID})
	if prune {
		g.pruneOrphans()
	}
}

// pruneOrphans destroys auto-inserted helpers whose outputs feed nothing.
func (g *Graph) pruneOrphans() {
	for {
		var orphans []nodeid.ID
		for id, e := range g.elements {
			if e.Node == nil || !e.Node.AutoInserted {
				continue
			}
			used := false
			for _, c := range g.conns {
				if c.From.Node == id {
					used = true
					break
				}
			}
			if !used {
				orphans = append(orphans, id)
			}
		}
		if len(orphans) == 0 {
			return
		}
		sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
		for _, id := range orphans {
			if e, ok := g.elements[id]; ok {
				g.destroy(e)
			}
		}
	}
}

// SetProxy sets the layout hint of a connection.
func (g *Graph) SetProxy(id nodeid.ConnID, proxy bool) error {
	c, ok := g.conns[id]
	if !ok {
		return g.structural(nodeid.None, "connection %d not found", id)
	}
	c.Proxy = proxy
	return nil
}
