// Package codegen lowers a graph to Go source with the same observable
// behavior as the interpreter.
//
// Each graph becomes one file holding a Bind<Name> function that wires the
// graph's members, functions, constructors and event entry points into a
// nodert.Program for a host. Generation is a pure function of the graph's
// content: the same graph always yields the same text, so the content hash
// can be used to skip regeneration.
//
// Every statement is preceded by a `// node <id> (<kind>)` marker. The line
// map built from the markers after formatting lets build errors be traced
// back to graph elements.
//
// Problems are collected as GenerationErrors instead of aborting. A body
// that cannot be generated is replaced by a stub returning an error, so the
// output always compiles and stays inspectable.
package codegen
