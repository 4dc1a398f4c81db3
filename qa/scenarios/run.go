package scenarios

import (
	"context"

	"github.com/kilianp07/arbitrage/core/factory"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/simulation"
	"github.com/kilianp07/arbitrage/core/strategy"
)

func (sc Scenario) battery() (*model.Battery, error) {
	params := model.BatteryParams{
		CapacityKWh: sc.Battery.CapacityKWh,
		PowerKW:     sc.Battery.PowerKW,
		Efficiency:  sc.Battery.Efficiency,
		SoCMin:      sc.Battery.SoCMin,
		SoCMax:      sc.Battery.SoCMax,
	}
	if sc.Battery.InitialSoC == nil {
		return model.NewBattery(params)
	}
	return model.NewBatteryAt(params, *sc.Battery.InitialSoC*params.CapacityKWh)
}

// Run simulates the scenario and returns its records and summary. Observers
// see every applied step.
func (sc Scenario) Run(ctx context.Context, observers ...simulation.Observer) ([]model.DispatchRecord, model.Summary, error) {
	series, err := sc.Series()
	if err != nil {
		return nil, model.Summary{}, err
	}
	b, err := sc.battery()
	if err != nil {
		return nil, model.Summary{}, err
	}
	strat, err := strategy.New(factory.ModuleConfig{Type: sc.Strategy.Type, Conf: sc.Strategy.Conf})
	if err != nil {
		return nil, model.Summary{}, err
	}
	step, _ := sc.step()
	sim := simulation.New(observers...)
	sim.Timestep = step
	recs, err := sim.Run(ctx, series, b, strat)
	if err != nil {
		return recs, model.Summary{}, err
	}
	return recs, model.Summarize(recs, b.Params()), nil
}
