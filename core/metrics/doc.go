// Package metrics defines the observability contract of the dispatch engine.
// Sinks receive one StepEvent per simulated step and optionally a RunEvent at
// the end of a run. Implementations for Prometheus, InfluxDB and MQTT live in
// infra and register themselves by name; NewMetricsSink builds a MultiSink
// when several sinks are configured.
package metrics
