// Package observe provides observability primitives for the cache proxy.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. The taskcache package accepts its Logger, Metrics,
// and Tracer through configuration; all three default to no-ops.
package observe
