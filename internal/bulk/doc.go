// Package bulk generates Go sources for many graphs at once.
//
// Graphs belong to the goroutine serving a scheduler.Queue. A Job takes an
// HCL snapshot of every graph on that queue, then decodes and generates the
// snapshots on a bounded pool of workers, so editing can continue while
// generation runs. Graphs whose content hash matches the artifact store are
// skipped. A Job can be canceled between graphs, and the generator checks
// the same flag between bodies.
package bulk
