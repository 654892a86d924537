// Package graph holds the node graph intermediate representation shared by
// the interpreter and the code generator.
//
// # Model
//
// A Graph is an arena of elements addressed by nodeid.ID. Elements form a
// tree (root, groups, function bodies, nodes); nodes carry typed ports, and
// connections join an output port to an input port by reference only:
//
//	graph ─┬─ element tree   (Attach, Destroy, Find, Transplant)
//	       ├─ connections    (Connect, Disconnect, SetProxy)
//	       └─ members        (variables, properties, functions, constructors)
//
// Ports are never stored independently of their node. They are produced by
// the node kind's port function, supplied through the Kinds interface, when a
// node is registered and again on Refresh.
//
// # Connections
//
// Connect is all-or-nothing: a rejected edge leaves the graph exactly as it
// was. Value inputs accept a single producer and a new edge replaces the old
// one. Flow inputs accept several incoming edges. When value types differ and
// a converter kind applies, a helper node marked AutoInserted is placed
// between the two ports; Disconnect and Destroy prune helpers that end up
// without a consumer.
//
// # Observation
//
// Mutations are reported to observers registered with Observe, in the order
// they happen. Destroy always reports every removed connection of a node
// before the node itself.
//
// A Graph is not safe for concurrent use. Callers that share a graph across
// goroutines serialize access through scheduler.Queue.
package graph
