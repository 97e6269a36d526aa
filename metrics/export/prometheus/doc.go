// Package prometheus exposes goSession counters through client_golang.
//
// [Collector] implements prometheus.Collector: register it with any registry, or use
// [Handler] to serve it from a private one. Counter names are gosession_*_total; the
// single histogram is gosession_validate_latency_seconds.
package prometheus
