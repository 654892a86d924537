package graph

import "github.com/specialistvlad/nodegraph/internal/nodeid"

// EventType identifies a graph mutation.
type EventType int

const (
	NodeAdded EventType = iota
	NodeRemoved
	NodeRefreshed
	ElementRemoved
	ElementMoved
	ConnectionAdded
	ConnectionRemoved
	MemberChanged
)

func (t EventType) String() string {
	switch t {
	case NodeAdded:
		return "node_added"
	case NodeRemoved:
		return "node_removed"
	case NodeRefreshed:
		return "node_refreshed"
	case ElementRemoved:
		return "element_removed"
	case ElementMoved:
		return "element_moved"
	case ConnectionAdded:
		return "connection_added"
	case ConnectionRemoved:
		return "connection_removed"
	case MemberChanged:
		return "member_changed"
	default:
		return "unknown"
	}
}

// Event describes one mutation. Element is set for element events, Conn for
// connection events and Member for member events.
type Event struct {
	Type    EventType
	Element nodeid.ID
	Conn    nodeid.ConnID
	Member  string
}

// Observe registers fn to be called synchronously after every mutation.
func (g *Graph) Observe(fn func(Event)) {
	g.observers = append(g.observers, fn)
}

func (g *Graph) emit(ev Event) {
	for _, fn := range g.observers {
		fn(ev)
	}
}
