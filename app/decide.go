package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/strategy"
)

// Decision is the answer to a single decision query.
type Decision struct {
	Time     time.Time    `json:"time"`
	Price    float64      `json:"price"`
	SoC      float64      `json:"soc"`
	Action   model.Action `json:"action"`
	Strategy string       `json:"strategy"`
}

// Decide asks the configured strategy what to do at the price point nearest
// to at, with the battery at soc (a fraction of capacity). A zero at selects
// the first point of the series and a nil soc uses the configured initial
// state.
func (s *Service) Decide(ctx context.Context, at time.Time, soc *float64) (Decision, error) {
	series, err := s.Prices(ctx)
	if err != nil {
		return Decision{}, err
	}
	if at.IsZero() {
		at = series.Start()
	}
	pt, err := series.Nearest(at)
	if err != nil {
		return Decision{}, err
	}

	battery, err := s.cfg.NewBattery()
	if err != nil {
		return Decision{}, err
	}
	if soc != nil {
		params := battery.Params()
		if battery, err = model.NewBatteryAt(params, *soc*params.CapacityKWh); err != nil {
			return Decision{}, err
		}
	}

	action, err := s.strategy.Decide(strategy.Context{
		Time:    pt.Time,
		Price:   pt.Price,
		Series:  series,
		Battery: battery.Clone(),
		Step:    s.cfg.Simulation.Timestep,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("decide at %s: %w", pt.Time.Format(time.RFC3339), err)
	}
	return Decision{Time: pt.Time, Price: pt.Price, SoC: battery.SoC(), Action: action, Strategy: s.strategy.Name()}, nil
}
