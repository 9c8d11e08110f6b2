// Package progress carries search lifecycle and per-strategy outcome events
// from the engine to pluggable sinks. Emit never blocks the engine; a
// background goroutine batches events and fans them out to sinks such as
// Prometheus, structured logs, or a message topic.
package progress
