package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/arbitrage/connectors"
	"github.com/kilianp07/arbitrage/core/factory"
)

// PricesConfig selects the price source and the fetch window.
type PricesConfig struct {
	Source factory.ModuleConfig `json:"source"`
	Start  time.Time            `json:"start"`
	End    time.Time            `json:"end"`
}

func (c *PricesConfig) SetDefaults() {
	if c.Source.Type == "" {
		c.Source.Type = "csv"
	}
}

func (c PricesConfig) Validate() error {
	if !c.Start.IsZero() && !c.End.IsZero() && !c.End.After(c.Start) {
		return fmt.Errorf("prices: end must be after start")
	}
	return nil
}

// Options converts the window to fetch options.
func (c PricesConfig) Options() []connectors.Option {
	var opts []connectors.Option
	if !c.Start.IsZero() {
		opts = append(opts, connectors.WithStartDate(c.Start))
	}
	if !c.End.IsZero() {
		opts = append(opts, connectors.WithEndDate(c.End))
	}
	return opts
}
