// internal/nodeid/doc.go

/*
Package nodeid provides the stable identifiers used to address graph
elements and their ports.

Elements are addressed by a positive integer ID that is unique within its
graph and never reused. Ports are addressed by the owning node's ID plus the
port name, with the canonical text form `node.port`, e.g. `12.value`.

This package centralizes all formatting and parsing of these identifiers so
that persisted graphs, diagnostics, and symbol tables agree on one scheme.
*/
package nodeid
