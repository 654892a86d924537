// Package registry provides the central "glue" for the node kind system.
//
// The Registry maps the kind names stored in graphs (e.g. "core.print") to
// the Go definitions that give them meaning: the port function, the
// interpreter behavior and the code generator lowering. It also holds the
// ordered set of auto-conversion rules consulted by graph.Connect.
//
// During application startup every module registers its kinds, and the
// registry is then validated so that a kind missing one of its behaviors is
// reported before any graph runs.
package registry
