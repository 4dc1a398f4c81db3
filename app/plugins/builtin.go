// Package plugins links the built-in modules into the binary and lists the
// module types each registry knows.
package plugins

import (
	"sort"

	sources "github.com/kilianp07/arbitrage/connectors/factory"
	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/strategy"

	// Register the prometheus, influx and mqtt metrics sinks.
	_ "github.com/kilianp07/arbitrage/infra/metrics"
	_ "github.com/kilianp07/arbitrage/infra/mqtt"
)

const (
	KindStrategy    = "strategy"
	KindPriceSource = "price_source"
	KindMetricsSink = "metrics_sink"
)

// Catalog maps each module kind to its registered type names.
func Catalog() map[string][]string {
	return map[string][]string{
		KindStrategy:    strategy.Registry.Names(),
		KindPriceSource: sources.Registry.Names(),
		KindMetricsSink: coremetrics.SinkNames(),
	}
}

// Kinds returns the catalog keys in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, 3)
	for k := range Catalog() {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
