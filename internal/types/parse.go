// This file contains the logic for parsing type expressions (e.g., `string`,
// `list(number)`) into their corresponding cty.Type objects.

package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Any is the type of ports that accept every value.
var Any = cty.DynamicPseudoType

// Parse converts the text form of a type into its cty.Type equivalent.
func Parse(src string) (cty.Type, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return cty.NilType, fmt.Errorf("type expression cannot be empty")
	}
	expr, diags := hclsyntax.ParseExpression([]byte(src), "<type>", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilType, fmt.Errorf("invalid type expression %q: %w", src, diags)
	}
	return exprToType(expr)
}

// MustParse is like Parse but panics on error. It is intended for kind
// declarations with fixed type strings.
func MustParse(src string) cty.Type {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

// exprToType converts a type expression into its cty.Type equivalent.
func exprToType(expr hcl.Expression) (cty.Type, error) {
	switch v := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		if v.Name == "object" {
			return objectExprToType(v)
		}

		if len(v.Args) != 1 {
			return cty.NilType, fmt.Errorf("type constructors (list, map, set) require exactly one argument, got %d", len(v.Args))
		}
		elementType, err := exprToType(v.Args[0])
		if err != nil {
			return cty.NilType, err
		}
		if elementType == cty.DynamicPseudoType {
			return cty.NilType, fmt.Errorf("collection types cannot contain type 'any'")
		}

		switch v.Name {
		case "list":
			return cty.List(elementType), nil
		case "map":
			return cty.Map(elementType), nil
		case "set":
			return cty.Set(elementType), nil
		default:
			return cty.NilType, fmt.Errorf("unknown type constructor function %q", v.Name)
		}

	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return cty.NilType, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		switch name := v.Traversal.RootName(); name {
		case "string":
			return cty.String, nil
		case "number":
			return cty.Number, nil
		case "bool":
			return cty.Bool, nil
		case "any":
			return cty.DynamicPseudoType, nil
		default:
			return cty.NilType, fmt.Errorf("unknown primitive type %q", name)
		}

	default:
		return cty.NilType, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}

func objectExprToType(call *hclsyntax.FunctionCallExpr) (cty.Type, error) {
	if len(call.Args) != 1 {
		return cty.NilType, fmt.Errorf("the object() type constructor requires exactly one argument, got %d", len(call.Args))
	}
	objExpr, ok := call.Args[0].(*hclsyntax.ObjectConsExpr)
	if !ok {
		return cty.NilType, fmt.Errorf("the argument to object() must be an object literal like { key = type, ... }, got %T", call.Args[0])
	}

	attrTypes := make(map[string]cty.Type, len(objExpr.Items))
	for _, item := range objExpr.Items {
		var key string
		if keyExpr, ok := item.KeyExpr.(*hclsyntax.ObjectConsKeyExpr); ok {
			if trav, ok := keyExpr.Wrapped.(*hclsyntax.ScopeTraversalExpr); ok && len(trav.Traversal) == 1 {
				key = trav.Traversal.RootName()
			}
		}
		if key == "" {
			return cty.NilType, fmt.Errorf("invalid key in object type definition: keys must be simple identifiers")
		}
		valueType, err := exprToType(item.ValueExpr)
		if err != nil {
			return cty.NilType, fmt.Errorf("in object attribute '%s': %w", key, err)
		}
		attrTypes[key] = valueType
	}
	return cty.Object(attrTypes), nil
}

// String renders a type in the same syntax Parse accepts. The NilType renders
// as the empty string.
func String(t cty.Type) string {
	switch {
	case t == cty.NilType:
		return ""
	case t == cty.DynamicPseudoType:
		return "any"
	case t.Equals(cty.String):
		return "string"
	case t.Equals(cty.Number):
		return "number"
	case t.Equals(cty.Bool):
		return "bool"
	case t.IsListType():
		return "list(" + String(t.ElementType()) + ")"
	case t.IsMapType():
		return "map(" + String(t.ElementType()) + ")"
	case t.IsSetType():
		return "set(" + String(t.ElementType()) + ")"
	case t.IsObjectType():
		attrs := t.AttributeTypes()
		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, name+" = "+String(attrs[name]))
		}
		return "object({" + strings.Join(parts, ", ") + "})"
	default:
		return t.FriendlyName()
	}
}

// Compatible reports whether a value of type from may flow directly into a
// port of type to, without an intermediary conversion node.
func Compatible(from, to cty.Type) bool {
	if to == cty.DynamicPseudoType {
		return true
	}
	return from.Equals(to)
}

// FromExpr converts an already parsed type expression, such as the value of
// a `type = list(string)` attribute.
func FromExpr(expr hcl.Expression) (cty.Type, error) {
	return exprToType(expr)
}
