// Package factory builds price sources from module configuration.
package factory

import (
	"github.com/kilianp07/arbitrage/connectors"
	"github.com/kilianp07/arbitrage/connectors/file"
	"github.com/kilianp07/arbitrage/connectors/synthetic"
	"github.com/kilianp07/arbitrage/connectors/wholesalemarket"
	"github.com/kilianp07/arbitrage/core/factory"
)

const (
	IDCSV             = "csv"
	IDJSON            = "json"
	IDWholesaleMarket = "wholesale_market"
	IDSynthetic       = "synthetic"
)

// Registry holds the price source factories.
var Registry = factory.NewRegistry[connectors.PriceSource]()

func init() {
	Registry.MustRegister(IDCSV, func(conf map[string]any) (connectors.PriceSource, error) {
		s := file.NewCSVSource("")
		if err := factory.Decode(conf, s); err != nil {
			return nil, err
		}
		return s, nil
	})
	Registry.MustRegister(IDJSON, func(conf map[string]any) (connectors.PriceSource, error) {
		s := &file.JSONSource{}
		if err := factory.Decode(conf, s); err != nil {
			return nil, err
		}
		return s, nil
	})
	Registry.MustRegister(IDWholesaleMarket, func(conf map[string]any) (connectors.PriceSource, error) {
		var c wholesalemarket.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return wholesalemarket.New(c), nil
	})
	Registry.MustRegister(IDSynthetic, func(conf map[string]any) (connectors.PriceSource, error) {
		s := synthetic.New()
		if err := factory.Decode(conf, s); err != nil {
			return nil, err
		}
		return s, nil
	})
}

// NewPriceSource instantiates the source named by cfg.Type.
func NewPriceSource(cfg factory.ModuleConfig) (connectors.PriceSource, error) {
	return Registry.Create(cfg)
}
