package graph

import (
	"slices"

	"github.com/specialistvlad/nodegraph/internal/nodeid"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

// Transplant moves the subtree rooted at id from src into dst under
// dstParent. The copy gets fresh ids from dst; the returned map translates
// old ids to new ones. Connections internal to the subtree are carried over,
// connections crossing its boundary are dropped, and member declarations the
// subtree refers to are copied into dst when missing there. A failed
// transplant leaves both graphs unmodified.
func Transplant(src *Graph, id nodeid.ID, dst *Graph, dstParent nodeid.ID) (map[nodeid.ID]nodeid.ID, error) {
	e, ok := src.elements[id]
	if !ok {
		return nil, src.structural(id, "element not found")
	}
	if e.Kind == ElementRoot || e.Kind == ElementBody {
		return nil, src.structural(id, "%s elements cannot be transplanted", e.Kind)
	}
	if src == dst {
		if err := dst.Attach(dstParent, id); err != nil {
			return nil, err
		}
		ids := map[nodeid.ID]nodeid.ID{}
		for sub := range dst.Find(id, nil, true) {
			ids[sub.ID] = sub.ID
		}
		ids[id] = id
		return ids, nil
	}
	if p, ok := dst.elements[dstParent]; !ok || p.Kind == ElementNode {
		return nil, dst.structural(dstParent, "invalid transplant target")
	}

	if err := checkMembers(src, []*Element{e}, dst); err != nil {
		return nil, err
	}
	saved := dst.checkpoint()
	ids, err := copyElements(src, []*Element{e}, dst, dstParent)
	if err != nil {
		dst.restore(saved)
		return nil, err
	}
	src.destroy(e)
	return ids, nil
}

// checkMembers rejects a transplant whose members are declared differently
// in dst, including members reached through copied function bodies.
func checkMembers(src *Graph, roots []*Element, dst *Graph) error {
	seen := map[string]bool{}
	var walk func(e *Element) error
	walk = func(e *Element) error {
		if e.Node != nil {
			for _, name := range e.Node.MemberRefs() {
				if seen[name] {
					continue
				}
				seen[name] = true
				if err := sameMember(src, dst, name); err != nil {
					return err
				}
				if f := src.Function(name); f != nil && dst.MemberKindOf(name) == MemberNone {
					if err := walk(src.elements[f.Body]); err != nil {
						return err
					}
				}
			}
		}
		for _, c := range e.Children {
			if err := walk(src.elements[c]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := walk(r); err != nil {
			return err
		}
	}
	return nil
}

// sameMember reports an error when dst declares name with another kind, type
// or signature than src.
func sameMember(src, dst *Graph, name string) error {
	kind := dst.MemberKindOf(name)
	if kind == MemberNone {
		return nil
	}
	if kind != src.MemberKindOf(name) {
		return dst.structural(nodeid.None, "member %q exists in the target graph as a %s", name, kind)
	}
	switch kind {
	case MemberVariable, MemberProperty:
		want, _ := src.StateType(name)
		got, _ := dst.StateType(name)
		if !got.Equals(want) {
			return dst.structural(nodeid.None, "%s %q is %s in the target graph, %s in the source", kind, name, types.String(got), types.String(want))
		}
	case MemberFunction:
		sf, df := src.Function(name), dst.Function(name)
		if !sameSignature(sf, df) {
			return dst.structural(nodeid.None, "function %q has another signature in the target graph", name)
		}
	}
	return nil
}

func sameSignature(a, b *Function) bool {
	if (a.Returns == cty.NilType) != (b.Returns == cty.NilType) {
		return false
	}
	if a.Returns != cty.NilType && !a.Returns.Equals(b.Returns) {
		return false
	}
	return slices.EqualFunc(a.Params, b.Params, func(x, y Param) bool {
		return x.Name == y.Name && x.Type.Equals(y.Type)
	})
}

// copyElements copies the subtrees rooted at roots, which share a parent,
// into dst under dstParent.
func copyElements(src *Graph, roots []*Element, dst *Graph, dstParent nodeid.ID) (map[nodeid.ID]nodeid.ID, error) {
	var order []*Element
	isRoot := map[nodeid.ID]bool{}
	var collect func(e *Element)
	collect = func(e *Element) {
		order = append(order, e)
		for _, c := range e.Children {
			collect(src.elements[c])
		}
	}
	for _, r := range roots {
		isRoot[r.ID] = true
		collect(r)
	}

	for _, e := range order {
		if e.Node == nil {
			continue
		}
		for _, name := range e.Node.MemberRefs() {
			if err := copyMember(src, dst, name); err != nil {
				return nil, err
			}
		}
	}

	ids := make(map[nodeid.ID]nodeid.ID, len(order))
	for _, e := range order {
		parent := dstParent
		if !isRoot[e.ID] {
			parent = ids[e.Parent]
		}
		if e.Node != nil {
			n, err := dst.addNode(parent, NodeSpec{
				Kind: e.Node.Kind, Name: e.Name,
				Settings: e.Node.Settings, Inputs: e.Node.Inputs,
			}, e.Node.AutoInserted)
			if err != nil {
				return nil, err
			}
			ids[e.ID] = n.ID
			continue
		}
		ne, err := dst.newElement(parent, e.Name, e.Kind)
		if err != nil {
			return nil, err
		}
		ids[e.ID] = ne.ID
	}

	for _, c := range src.Connections() {
		from, okFrom := ids[c.From.Node]
		to, okTo := ids[c.To.Node]
		if !okFrom || !okTo {
			continue
		}
		fromRef, toRef := nodeid.Ref(from, c.From.Port), nodeid.Ref(to, c.To.Port)
		if _, err := dst.RestoreConnection(dst.allocConnID(), fromRef, toRef, c.Proxy); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// copyMember declares name in dst with src's declaration unless dst already
// has it. Function bodies are copied, not moved.
func copyMember(src, dst *Graph, name string) error {
	if dst.MemberKindOf(name) != MemberNone {
		return sameMember(src, dst, name)
	}
	switch src.MemberKindOf(name) {
	case MemberVariable:
		v := *src.Variable(name)
		_, err := dst.AddVariable(v)
		return err
	case MemberProperty:
		p := *src.Property(name)
		_, err := dst.AddProperty(p)
		return err
	case MemberFunction:
		f := src.Function(name)
		nf, err := dst.AddFunction(f.Name, f.Params, f.Returns)
		if err != nil {
			return err
		}
		var roots []*Element
		for _, child := range src.elements[f.Body].Children {
			roots = append(roots, src.elements[child])
		}
		_, err = copyElements(src, roots, dst, nf.Body)
		return err
	default:
		return src.structural(nodeid.None, "unknown member %q", name)
	}
}
