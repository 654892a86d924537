// Package artifactstore remembers what the code generator produced for each
// graph, so unchanged graphs are not generated again.
//
// A Record is keyed by graph id and carries the content hash of the graph it
// was generated from. Memory keeps records for one process; the sqlitestore
// subpackage persists them. The same msgpack and zstd codec encodes the
// .go.map sidecar written next to every generated file.
package artifactstore
