// Package diag carries problems found while editing, generating, building
// or running a graph back to whoever is listening: the log, a collector the
// healthcheck serves, or a remote editor over socket.io.
//
// A Diagnostic names the graph element it originates from whenever the
// underlying error implements Located.
package diag
