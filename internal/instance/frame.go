package instance

import (
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Frame is the state of one traversal: the slot map of values produced so
// far, progress markers and the function call context.
type Frame struct {
	ID       int
	Entry    nodeid.ID
	Function string
	Depth    int
	Params   map[string]cty.Value

	// Steps counts executed flow nodes.
	Steps int
	// Returned is set by a return node; the traversal unwinds.
	Returned bool
	Result   cty.Value
	// Pending counts continuations registered but not yet resumed.
	Pending int

	slots   map[nodeid.PortRef]cty.Value
	cache   map[nodeid.PortRef]cty.Value
	visited map[nodeid.ID]int
}

func newFrame(id int, entry nodeid.ID, function string) *Frame {
	return &Frame{
		ID:       id,
		Entry:    entry,
		Function: function,
		Params:   make(map[string]cty.Value),
		slots:    make(map[nodeid.PortRef]cty.Value),
		cache:    make(map[nodeid.PortRef]cty.Value),
		visited:  make(map[nodeid.ID]int),
	}
}

// Slot returns a value written by a flow node during this traversal.
func (f *Frame) Slot(ref nodeid.PortRef) (cty.Value, bool) {
	v, ok := f.slots[ref]
	return v, ok
}

// SetSlot records a value output written by a flow node.
func (f *Frame) SetSlot(ref nodeid.PortRef, v cty.Value) {
	f.slots[ref] = v
}

// Cached returns a memoized data output.
func (f *Frame) Cached(ref nodeid.PortRef) (cty.Value, bool) {
	v, ok := f.cache[ref]
	return v, ok
}

// Cache memoizes a data output for the rest of the traversal.
func (f *Frame) Cache(ref nodeid.PortRef, v cty.Value) {
	f.cache[ref] = v
}

// Evict drops memoized outputs of the given nodes.
func (f *Frame) Evict(nodes map[nodeid.ID]bool) {
	for ref := range f.cache {
		if nodes[ref.Node] {
			delete(f.cache, ref)
		}
	}
}

// Visit marks a flow node as executed and returns the updated step count.
func (f *Frame) Visit(id nodeid.ID) int {
	f.visited[id]++
	f.Steps++
	return f.Steps
}

// Visits returns how often a node ran in this traversal.
func (f *Frame) Visits(id nodeid.ID) int {
	return f.visited[id]
}
