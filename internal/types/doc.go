// Package types holds the value type system shared by the graph model, the
// interpreter, and the code generator.
//
// Port types and values are represented with go-cty. Type expressions use the
// HCL type syntax (`string`, `number`, `bool`, `any`, `list(number)`), so a
// persisted graph can spell its port and member types the same way a module
// manifest does.
package types
