package registry

import (
	"strings"

	"github.com/specialistvlad/nodegraph/internal/graph"
)

// Capability is a bitset describing what a node kind can do. It replaces a
// class hierarchy: behavior is looked up by kind, traits by bit.
type Capability uint16

const (
	// HasFlowInput kinds are executed when control reaches them.
	HasFlowInput Capability = 1 << iota
	// HasFlowOutput kinds pass control on.
	HasFlowOutput
	// CoroutineCapable kinds may suspend the traversal.
	CoroutineCapable
	// GenericCapable kinds derive their ports from settings or members.
	GenericCapable
	// Impure kinds produce a different value on every evaluation.
	Impure
	// Fallible kinds may fail at runtime.
	Fallible
	// EntryPoint kinds start traversals.
	EntryPoint
	// Loop kinds fire a body output repeatedly.
	Loop
	// AutoConvert kinds are inserted by auto-conversion.
	AutoConvert
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{HasFlowInput, "flow_in"},
	{HasFlowOutput, "flow_out"},
	{CoroutineCapable, "coroutine"},
	{GenericCapable, "generic"},
	{Impure, "impure"},
	{Fallible, "fallible"},
	{EntryPoint, "entry"},
	{Loop, "loop"},
	{AutoConvert, "converter"},
}

// Has reports whether every bit of o is set.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

func (c Capability) String() string {
	var parts []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "data"
	}
	return strings.Join(parts, "|")
}

// PortFunc returns a node's ports for its current settings and the members
// of its graph.
type PortFunc func(g *graph.Graph, n *graph.Node) ([]*graph.Port, error)

// Kind is the definition of a node kind.
type Kind struct {
	Name        string
	Description string
	Caps        Capability
	Ports       PortFunc

	// Eval computes the value outputs of a data kind.
	Eval func(ec ExecContext) error
	// Exec runs a flow kind and returns the flow outputs to continue with,
	// in order.
	Exec func(ec ExecContext) ([]string, error)
	// Emit lowers the node to Go statements or expressions.
	Emit func(ec EmitContext) error
}

// IsFlow reports whether the kind takes part in control flow. Kinds that do
// not are data kinds, evaluated on demand.
func (k *Kind) IsFlow() bool {
	return k.Caps&(HasFlowInput|HasFlowOutput) != 0
}

// Static returns a PortFunc for kinds whose ports never change.
func Static(ports ...*graph.Port) PortFunc {
	return func(*graph.Graph, *graph.Node) ([]*graph.Port, error) {
		return ports, nil
	}
}
