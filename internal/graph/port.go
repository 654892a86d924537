package graph

import (
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Direction of a port relative to its node.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Channel separates control flow from data.
type Channel int

const (
	// Flow ports carry execution order.
	Flow Channel = iota
	// Value ports carry typed data.
	Value
)

func (c Channel) String() string {
	if c == Value {
		return "value"
	}
	return "flow"
}

// Port is a typed endpoint on a node.
type Port struct {
	Name      string
	Direction Direction
	Channel   Channel
	// Type is meaningful for value ports. cty.DynamicPseudoType accepts any
	// value.
	Type cty.Type
	// Default is used by value inputs with neither a connection nor an
	// inline literal. cty.NilVal means the zero value of Type.
	Default cty.Value

	node nodeid.ID
}

// Ref returns the port's address.
func (p *Port) Ref() nodeid.PortRef {
	return nodeid.Ref(p.node, p.Name)
}

// Node returns the id of the owning node.
func (p *Port) Node() nodeid.ID {
	return p.node
}

// FlowIn declares a flow input port.
func FlowIn(name string) *Port {
	return &Port{Name: name, Direction: Input, Channel: Flow}
}

// FlowOut declares a flow output port.
func FlowOut(name string) *Port {
	return &Port{Name: name, Direction: Output, Channel: Flow}
}

// ValueIn declares a value input port.
func ValueIn(name string, t cty.Type) *Port {
	return &Port{Name: name, Direction: Input, Channel: Value, Type: t}
}

// ValueOut declares a value output port.
func ValueOut(name string, t cty.Type) *Port {
	return &Port{Name: name, Direction: Output, Channel: Value, Type: t}
}

// WithDefault sets the port's default value.
func (p *Port) WithDefault(v cty.Value) *Port {
	p.Default = v
	return p
}
