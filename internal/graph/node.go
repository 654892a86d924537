package graph

import (
	"slices"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

// FunctionEntryKind is the node kind every function body starts from.
const FunctionEntryKind = "core.function_entry"

// memberSettingKeys are the settings through which a node refers to a member
// declaration by name.
var memberSettingKeys = []string{"member", "function"}

// Kinds supplies the node-kind knowledge the graph needs: port shapes and
// auto-conversion. registry.Registry implements it.
type Kinds interface {
	// Ports returns the ports of a node in declaration order. It is called on
	// registration and on Refresh, so member-typed kinds can follow edits.
	Ports(g *Graph, n *Node) ([]*Port, error)
	// Converter returns the helper node that bridges a from value to a to
	// port, if any converter applies.
	Converter(from, to cty.Type) (NodeSpec, bool)
}

// Node is the payload of an ElementNode.
type Node struct {
	ID           nodeid.ID
	Kind         string
	Settings     map[string]cty.Value
	Inputs       map[string]cty.Value
	Ports        []*Port
	AutoInserted bool
}

// Port returns the named port, or nil.
func (n *Node) Port(name string) *Port {
	for _, p := range n.Ports {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PortsOf returns the ports matching direction and channel, in order.
func (n *Node) PortsOf(d Direction, c Channel) []*Port {
	var out []*Port
	for _, p := range n.Ports {
		if p.Direction == d && p.Channel == c {
			out = append(out, p)
		}
	}
	return out
}

// Setting returns a setting or cty.NilVal.
func (n *Node) Setting(name string) cty.Value {
	if v, ok := n.Settings[name]; ok {
		return v
	}
	return cty.NilVal
}

// SettingString returns a string setting, or "" when absent or not a string.
func (n *Node) SettingString(name string) string {
	v := n.Setting(name)
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() || !v.Type().Equals(cty.String) {
		return ""
	}
	return v.AsString()
}

// SettingNumber returns a number setting or def.
func (n *Node) SettingNumber(name string, def float64) float64 {
	v := n.Setting(name)
	if v == cty.NilVal {
		return def
	}
	f, err := types.Float(v)
	if err != nil {
		return def
	}
	return f
}

// SettingKeys returns the setting names in sorted order.
func (n *Node) SettingKeys() []string {
	keys := make([]string, 0, len(n.Settings))
	for k := range n.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MemberRefs returns the member names the node refers to.
func (n *Node) MemberRefs() []string {
	var out []string
	for _, k := range memberSettingKeys {
		if s := n.SettingString(k); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NodeSpec describes a node to create.
type NodeSpec struct {
	Kind     string
	Name     string
	Settings map[string]cty.Value
	Inputs   map[string]cty.Value
}

// AddNode creates a node element under parent and registers its ports.
func (g *Graph) AddNode(parent nodeid.ID, spec NodeSpec) (*Node, error) {
	return g.addNode(parent, spec, false)
}

func (g *Graph) addNode(parent nodeid.ID, spec NodeSpec, auto bool) (*Node, error) {
	if spec.Kind == "" {
		return nil, g.structural(parent, "node kind cannot be empty")
	}
	n := &Node{
		Kind:         spec.Kind,
		Settings:     copyValues(spec.Settings),
		Inputs:       copyValues(spec.Inputs),
		AutoInserted: auto,
	}
	ports, err := g.kinds.Ports(g, n)
	if err != nil {
		return nil, g.structural(parent, "registering %s node: %v", spec.Kind, err)
	}
	name := spec.Name
	if name == "" {
		name = spec.Kind
	}
	e, err := g.newElement(parent, name, ElementNode)
	if err != nil {
		return nil, err
	}
	n.ID = e.ID
	e.Node = n
	n.Ports = bindPorts(e.ID, ports)
	g.emit(Event{Type: NodeAdded, Element: e.ID})
	return n, nil
}

func bindPorts(id nodeid.ID, ports []*Port) []*Port {
	out := make([]*Port, 0, len(ports))
	for _, p := range ports {
		cp := *p
		cp.node = id
		out = append(out, &cp)
	}
	return out
}

func copyValues(in map[string]cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Node returns the node with the given id.
func (g *Graph) Node(id nodeid.ID) (*Node, bool) {
	e, ok := g.elements[id]
	if !ok || e.Node == nil {
		return nil, false
	}
	return e.Node, true
}

// Port resolves a port reference.
func (g *Graph) Port(ref nodeid.PortRef) (*Port, bool) {
	n, ok := g.Node(ref.Node)
	if !ok {
		return nil, false
	}
	p := n.Port(ref.Port)
	return p, p != nil
}

// SetSetting changes a node setting and refreshes its ports.
func (g *Graph) SetSetting(id nodeid.ID, name string, v cty.Value) error {
	n, ok := g.Node(id)
	if !ok {
		return g.structural(id, "node not found")
	}
	old, had := n.Settings[name]
	n.Settings[name] = v
	if err := g.Refresh(id); err != nil {
		if had {
			n.Settings[name] = old
		} else {
			delete(n.Settings, name)
		}
		return err
	}
	return nil
}

// SetInput sets the inline literal of an unconnected value input.
func (g *Graph) SetInput(id nodeid.ID, port string, v cty.Value) error {
	n, ok := g.Node(id)
	if !ok {
		return g.structural(id, "node not found")
	}
	p := n.Port(port)
	if p == nil || p.Direction != Input || p.Channel != Value {
		return g.structural(id, "node has no value input %q", port)
	}
	cv, err := types.Coerce(v, p.Type)
	if err != nil {
		return &TypeError{GraphID: g.ID, To: p.Ref(), Message: err.Error()}
	}
	n.Inputs[port] = cv
	return nil
}

// Refresh re-registers a node's ports after a settings or member change.
// Connections whose ports disappeared are removed. A value edge that no
// longer type-checks gets a converter helper when one applies; otherwise the
// refresh fails with a TypeError per edge and the graph is left unmodified.
func (g *Graph) Refresh(id nodeid.ID) error {
	if _, ok := g.Node(id); !ok {
		return g.structural(id, "node not found")
	}
	return g.refresh([]nodeid.ID{id})
}

// RefreshAll refreshes every node that refers to the named member, as one
// edit.
func (g *Graph) RefreshAll(member string) error {
	var ids []nodeid.ID
	for _, id := range g.NodeIDs() {
		if slices.Contains(g.elements[id].Node.MemberRefs(), member) {
			ids = append(ids, id)
		}
	}
	return g.refresh(ids)
}

// refresh re-registers the ports of every node first so edges between two
// refreshed nodes are checked against their new types.
func (g *Graph) refresh(ids []nodeid.ID) error {
	saved := g.checkpoint()
	for _, id := range ids {
		n := g.elements[id].Node
		ports, err := g.kinds.Ports(g, n)
		if err != nil {
			g.restore(saved)
			return g.structural(id, "refreshing %s node: %v", n.Kind, err)
		}
		n.Ports = bindPorts(id, ports)
		for name := range n.Inputs {
			if p := n.Port(name); p == nil || p.Direction != Input || p.Channel != Value {
				delete(n.Inputs, name)
			}
		}
	}

	var result *multierror.Error
	seen := map[nodeid.ConnID]bool{}
	for _, id := range ids {
		for _, c := range g.connectionsOf(id) {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			from, okFrom := g.Port(c.From)
			to, okTo := g.Port(c.To)
			switch {
			case !okFrom || !okTo || from.Channel != to.Channel:
				g.disconnect(c, false)
			case c.Channel == Value && !types.Compatible(from.Type, to.Type):
				g.disconnect(c, false)
				if _, err := g.Connect(c.From, c.To); err != nil {
					result = multierror.Append(result, err)
				}
			}
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		g.restore(saved)
		return err
	}
	g.pruneOrphans()
	for _, id := range ids {
		g.emit(Event{Type: NodeRefreshed, Element: id})
	}
	return nil
}
