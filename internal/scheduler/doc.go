// Package scheduler holds the host-side execution helpers.
//
// Ticker implements the tick clock that suspended traversals resume on: a
// delay node registers a continuation through nodert.Host.Schedule and the
// host advances the clock with Tick.
//
// Queue is a serialized work queue. Work submitted from any goroutine runs
// one item at a time on the goroutine that called Run, and the submitter
// waits for the result. Bulk generation uses it to snapshot graphs on the
// owning goroutine while workers generate in parallel.
package scheduler
