// Package build turns generated graph sources into runnable programs.
//
// A Builder receives the units produced by the code generator, merges them
// into one compilation unit and hands back a nodert.BindFunc per graph.
// The Interpreted builder evaluates the merged source with yaegi, so no Go
// toolchain is needed at runtime. Failures come back as diagnostics whose
// lines are mapped to the graph elements that produced them.
package build
