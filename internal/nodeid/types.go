// internal/nodeid/types.go
package nodeid

import "strconv"

// ID is the stable identifier of a graph element. The zero value means
// "no element".
type ID int

// None is the zero ID, used for "no parent" and "no element".
const None ID = 0

// IsValid reports whether the ID refers to an element.
func (id ID) IsValid() bool {
	return id > 0
}

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.Itoa(int(id))
}

// PortRef addresses a single port on a node.
type PortRef struct {
	Node ID
	Port string
}

// Ref is a short constructor for a PortRef.
func Ref(node ID, port string) PortRef {
	return PortRef{Node: node, Port: port}
}

// IsZero reports whether the reference is unset.
func (r PortRef) IsZero() bool {
	return r.Node == None && r.Port == ""
}

// ConnID is the stable identifier of a connection. It shares the element ID
// space of its graph so that one counter covers everything persisted.
type ConnID int
