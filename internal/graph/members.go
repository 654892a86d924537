package graph

import (
	"slices"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

// Member modifiers.
const (
	ModPublic   = "public"
	ModReadOnly = "readonly"
)

// MemberKind tells which collection a member name belongs to.
type MemberKind int

const (
	MemberNone MemberKind = iota
	MemberVariable
	MemberProperty
	MemberFunction
	MemberConstructor
)

func (k MemberKind) String() string {
	switch k {
	case MemberVariable:
		return "variable"
	case MemberProperty:
		return "property"
	case MemberFunction:
		return "function"
	case MemberConstructor:
		return "constructor"
	default:
		return "none"
	}
}

// Variable is graph-level state private to the instance.
type Variable struct {
	Name      string
	Type      cty.Type
	Default   cty.Value
	Modifiers []string
}

// Property is graph-level state readable by the host.
type Property struct {
	Name      string
	Type      cty.Type
	Default   cty.Value
	Modifiers []string
}

// ReadOnly reports whether set nodes may not write the property.
func (p *Property) ReadOnly() bool {
	return slices.Contains(p.Modifiers, ModReadOnly)
}

// Param is a function parameter.
type Param struct {
	Name string
	Type cty.Type
}

// Function is a callable body with a signature.
type Function struct {
	Name   string
	Params []Param
	// Returns is cty.NilType for functions without a result.
	Returns cty.Type
	Body    nodeid.ID
}

// Constructor is a body run once on activation, in declaration order.
type Constructor struct {
	Name string
	Body nodeid.ID
}

type memberTable struct {
	variables    []*Variable
	properties   []*Property
	functions    []*Function
	constructors []*Constructor
}

// Variables returns the variables in declaration order.
func (g *Graph) Variables() []*Variable { return g.members.variables }

// Properties returns the properties in declaration order.
func (g *Graph) Properties() []*Property { return g.members.properties }

// Functions returns the functions in declaration order.
func (g *Graph) Functions() []*Function { return g.members.functions }

// Constructors returns the constructors in declaration order.
func (g *Graph) Constructors() []*Constructor { return g.members.constructors }

// MemberKindOf returns which collection holds name.
func (g *Graph) MemberKindOf(name string) MemberKind {
	switch {
	case g.Variable(name) != nil:
		return MemberVariable
	case g.Property(name) != nil:
		return MemberProperty
	case g.Function(name) != nil:
		return MemberFunction
	case g.Constructor(name) != nil:
		return MemberConstructor
	default:
		return MemberNone
	}
}

// Variable looks up a variable by name.
func (g *Graph) Variable(name string) *Variable {
	for _, v := range g.members.variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Property looks up a property by name.
func (g *Graph) Property(name string) *Property {
	for _, p := range g.members.properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Function looks up a function by name.
func (g *Graph) Function(name string) *Function {
	for _, f := range g.members.functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Constructor looks up a constructor by name.
func (g *Graph) Constructor(name string) *Constructor {
	for _, c := range g.members.constructors {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// StateType returns the type of a variable or property.
func (g *Graph) StateType(name string) (cty.Type, bool) {
	if v := g.Variable(name); v != nil {
		return v.Type, true
	}
	if p := g.Property(name); p != nil {
		return p.Type, true
	}
	return cty.NilType, false
}

func (g *Graph) checkMemberName(name string) error {
	if name == "" {
		return g.structural(nodeid.None, "member name cannot be empty")
	}
	if k := g.MemberKindOf(name); k != MemberNone {
		return g.structural(nodeid.None, "member %q is already declared as a %s", name, k)
	}
	return nil
}

func normalizeDefault(t cty.Type, def cty.Value) (cty.Value, error) {
	if def == cty.NilVal {
		return types.Zero(t), nil
	}
	return types.Coerce(def, t)
}

// AddVariable declares a variable. A cty.NilVal default means the zero value.
func (g *Graph) AddVariable(v Variable) (*Variable, error) {
	if err := g.checkMemberName(v.Name); err != nil {
		return nil, err
	}
	def, err := normalizeDefault(v.Type, v.Default)
	if err != nil {
		return nil, g.structural(nodeid.None, "variable %q: %v", v.Name, err)
	}
	v.Default = def
	nv := &v
	g.members.variables = append(g.members.variables, nv)
	g.emit(Event{Type: MemberChanged, Member: v.Name})
	return nv, nil
}

// AddProperty declares a property.
func (g *Graph) AddProperty(p Property) (*Property, error) {
	if err := g.checkMemberName(p.Name); err != nil {
		return nil, err
	}
	def, err := normalizeDefault(p.Type, p.Default)
	if err != nil {
		return nil, g.structural(nodeid.None, "property %q: %v", p.Name, err)
	}
	p.Default = def
	np := &p
	g.members.properties = append(g.members.properties, np)
	g.emit(Event{Type: MemberChanged, Member: p.Name})
	return np, nil
}

// AddFunction declares a function and creates its empty body element. The
// caller adds the function_entry node to the body.
func (g *Graph) AddFunction(name string, params []Param, returns cty.Type) (*Function, error) {
	if err := g.checkMemberName(name); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, p := range params {
		if p.Name == "" || seen[p.Name] {
			return nil, g.structural(nodeid.None, "function %q: invalid or duplicate parameter %q", name, p.Name)
		}
		seen[p.Name] = true
	}
	body, err := g.newElement(g.root, name, ElementBody)
	if err != nil {
		return nil, err
	}
	f := &Function{Name: name, Params: slices.Clone(params), Returns: returns, Body: body.ID}
	g.members.functions = append(g.members.functions, f)
	g.emit(Event{Type: MemberChanged, Member: name})
	return f, nil
}

// AddConstructor declares a constructor and creates its empty body element.
func (g *Graph) AddConstructor(name string) (*Constructor, error) {
	if err := g.checkMemberName(name); err != nil {
		return nil, err
	}
	body, err := g.newElement(g.root, name, ElementBody)
	if err != nil {
		return nil, err
	}
	c := &Constructor{Name: name, Body: body.ID}
	g.members.constructors = append(g.members.constructors, c)
	g.emit(Event{Type: MemberChanged, Member: name})
	return c, nil
}

// SetStateType changes the type of a variable or property and refreshes the
// nodes that refer to it. When an existing edge cannot carry the new type the
// change is rejected and the graph is left unmodified.
func (g *Graph) SetStateType(name string, t cty.Type) error {
	saved := g.checkpoint()
	switch {
	case g.Variable(name) != nil:
		v := g.Variable(name)
		v.Type, v.Default = t, types.Zero(t)
	case g.Property(name) != nil:
		p := g.Property(name)
		p.Type, p.Default = t, types.Zero(t)
	default:
		return g.structural(nodeid.None, "no variable or property named %q", name)
	}
	if err := g.RefreshAll(name); err != nil {
		g.restore(saved)
		return err
	}
	g.emit(Event{Type: MemberChanged, Member: name})
	return nil
}

// RemoveMember deletes a member declaration and its body. Members still
// referenced by nodes cannot be removed.
func (g *Graph) RemoveMember(name string) error {
	kind := g.MemberKindOf(name)
	if kind == MemberNone {
		return g.structural(nodeid.None, "no member named %q", name)
	}
	for _, id := range g.NodeIDs() {
		n := g.elements[id].Node
		if slices.Contains(n.MemberRefs(), name) && !g.isInsideBodyOf(id, name) {
			return g.structural(id, "member %q is still referenced", name)
		}
	}

	var body nodeid.ID
	switch kind {
	case MemberVariable:
		g.members.variables = slices.DeleteFunc(g.members.variables, func(v *Variable) bool { return v.Name == name })
	case MemberProperty:
		g.members.properties = slices.DeleteFunc(g.members.properties, func(p *Property) bool { return p.Name == name })
	case MemberFunction:
		body = g.Function(name).Body
		g.members.functions = slices.DeleteFunc(g.members.functions, func(f *Function) bool { return f.Name == name })
	case MemberConstructor:
		body = g.Constructor(name).Body
		g.members.constructors = slices.DeleteFunc(g.members.constructors, func(c *Constructor) bool { return c.Name == name })
	}
	if e, ok := g.elements[body]; ok {
		g.destroy(e)
	}
	g.emit(Event{Type: MemberChanged, Member: name})
	return nil
}

// memberOwning returns the member whose body is id, if any.
func (g *Graph) memberOwning(id nodeid.ID) string {
	for _, f := range g.members.functions {
		if f.Body == id {
			return f.Name
		}
	}
	for _, c := range g.members.constructors {
		if c.Body == id {
			return c.Name
		}
	}
	return ""
}

// BodyOf returns the function or constructor body that contains id, if any.
func (g *Graph) BodyOf(id nodeid.ID) (nodeid.ID, string) {
	for cur, ok := g.elements[id]; ok; cur, ok = g.elements[cur.Parent] {
		if cur.Kind == ElementBody {
			return cur.ID, g.memberOwning(cur.ID)
		}
	}
	return nodeid.None, ""
}

func (g *Graph) isInsideBodyOf(id nodeid.ID, member string) bool {
	_, owner := g.BodyOf(id)
	return owner == member
}

// FunctionEntry returns the function_entry node of a function body.
func (g *Graph) FunctionEntry(f *Function) (*Node, error) {
	var found []*Node
	for e := range g.Find(f.Body, IsNodeKind(FunctionEntryKind), true) {
		found = append(found, e.Node)
	}
	if len(found) != 1 {
		return nil, g.structural(f.Body, "function %q must have exactly one entry node, found %d", f.Name, len(found))
	}
	return found[0], nil
}
