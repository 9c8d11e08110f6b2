// Package sinks implements progress consumers: Prometheus strategy metrics,
// structured logs, and a message publisher. Each satisfies progress.Sink.
package sinks
