// Package otel binds goSession counters to OpenTelemetry instruments.
//
// [NewOTelExporter] groups related counters into one instrument each, split by an
// outcome, cause or decision attribute (gosession.sign_in{outcome=rejected},
// gosession.session.removals{cause=sweep}). Validate latency is reported as
// cumulative bucket gauges keyed by le. One callback reads Manager.MetricsSnapshot
// on each collection; the caller owns the MeterProvider.
package otel
