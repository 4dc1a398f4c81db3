// Package simulation replays a price series through a dispatch strategy and
// applies each decision to the battery.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/arbitrage/core/logger"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/strategy"
)

// DefaultTimestep is the duration of one dispatch step.
const DefaultTimestep = time.Hour

// Observer is notified after every applied step, in series order.
type Observer interface {
	OnStep(rec model.DispatchRecord, decision time.Duration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(rec model.DispatchRecord, decision time.Duration)

func (f ObserverFunc) OnStep(rec model.DispatchRecord, decision time.Duration) { f(rec, decision) }

// Simulator is the sequential dispatch loop. It owns no battery: the caller
// passes the live battery to Run and the loop is its only writer for the
// duration of the call.
type Simulator struct {
	Timestep  time.Duration
	Log       logger.Logger
	Observers []Observer
}

// New returns a Simulator with the default timestep and a no-op logger.
func New(observers ...Observer) *Simulator {
	return &Simulator{Timestep: DefaultTimestep, Log: logger.Nop{}, Observers: observers}
}

func (s *Simulator) timestep() time.Duration {
	if s.Timestep <= 0 {
		return DefaultTimestep
	}
	return s.Timestep
}

// Run dispatches battery against every point of series. Charging and
// discharging always happen at the battery's rated power; the strategy only
// picks the direction.
//
// On a strategy error or context cancellation Run stops and returns the
// records produced so far together with the error.
func (s *Simulator) Run(ctx context.Context, series model.PriceSeries, battery *model.Battery, strat strategy.Strategy) ([]model.DispatchRecord, error) {
	if battery == nil || strat == nil {
		return nil, fmt.Errorf("simulation: battery and strategy are required")
	}
	if len(series) == 0 {
		return nil, model.ErrEmptySeries
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	log := logger.OrNop(s.Log)
	step := s.timestep()
	stepH := step.Hours()

	records := make([]model.DispatchRecord, 0, len(series))
	for _, pt := range series {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		start := time.Now()
		action, err := strat.Decide(strategy.Context{
			Time:    pt.Time,
			Price:   pt.Price,
			Series:  series,
			Battery: battery.Clone(),
			Step:    step,
		})
		latency := time.Since(start)
		if err != nil {
			log.Errorf("%s decision at %s failed: %v", strat.Name(), pt.Time.Format(time.RFC3339), err)
			return records, fmt.Errorf("step %s: %w", pt.Time.Format(time.RFC3339), err)
		}

		rec := Apply(battery, pt, action, stepH)
		records = append(records, rec)
		log.Debugw("dispatch step", map[string]any{
			"time":       rec.Time,
			"price":      rec.Price,
			"action":     rec.Action.String(),
			"soc_before": rec.SoCBefore,
			"soc_after":  rec.SoCAfter,
			"energy_kwh": rec.Energy,
			"revenue":    rec.Revenue,
			"latency_ms": latency.Milliseconds(),
		})
		for _, o := range s.Observers {
			o.OnStep(rec, latency)
		}
	}

	sum := model.Summarize(records, battery.Params())
	log.Infow("simulation finished", map[string]any{
		"strategy":          strat.Name(),
		"steps":             sum.Steps,
		"revenue":           sum.Revenue,
		"energy_charged":    sum.EnergyCharged,
		"energy_discharged": sum.EnergyDischarged,
		"final_soc":         sum.FinalSoC,
	})
	return records, nil
}

// Apply executes action on battery for one step at pt and returns the
// resulting record.
func Apply(battery *model.Battery, pt model.PricePoint, action model.Action, stepH float64) model.DispatchRecord {
	rec := model.DispatchRecord{
		Time:      pt.Time,
		Price:     pt.Price,
		Action:    action,
		SoCBefore: battery.SoC(),
	}
	switch action {
	case model.ActionCharge:
		rec.Energy = battery.Charge(battery.PowerLimit(), stepH)
		rec.Revenue = -rec.Energy * pt.Price
	case model.ActionDischarge:
		rec.Energy = battery.Discharge(battery.PowerLimit(), stepH)
		rec.Revenue = rec.Energy * pt.Price
	}
	rec.SoCAfter = battery.SoC()
	return rec
}
