package metrics

import "github.com/kilianp07/arbitrage/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Addr is the listen address of the Prometheus /metrics endpoint. Empty
	// disables the endpoint.
	Addr string `json:"addr"`
}
