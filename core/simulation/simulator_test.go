package simulation

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/core/logger"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/strategy"
)

var t0 = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func hourly(prices ...float64) model.PriceSeries {
	s := make(model.PriceSeries, len(prices))
	for i, p := range prices {
		s[i] = model.PricePoint{Time: t0.Add(time.Duration(i) * time.Hour), Price: p}
	}
	return s
}

var scenarioParams = model.BatteryParams{CapacityKWh: 100, PowerKW: 50, Efficiency: 0.9, SoCMin: 0.1, SoCMax: 0.9}

type captureLogger struct {
	logger.Nop
	steps  int
	infos  []string
	errors int
}

func (c *captureLogger) Debugw(msg string, _ map[string]any) {
	if msg == "dispatch step" {
		c.steps++
	}
}
func (c *captureLogger) Infow(msg string, _ map[string]any) { c.infos = append(c.infos, msg) }
func (c *captureLogger) Errorf(string, ...any)              { c.errors++ }

func TestRun_ThresholdScenario(t *testing.T) {
	b, err := model.NewBattery(scenarioParams)
	require.NoError(t, err)
	log := &captureLogger{}
	sim := New()
	sim.Log = log

	recs, err := sim.Run(context.Background(), hourly(30, 90, 50, 10, 95), b, strategy.NewThreshold())
	require.NoError(t, err)
	require.Len(t, recs, 5)

	want := []model.Action{model.ActionIdle, model.ActionDischarge, model.ActionIdle, model.ActionCharge, model.ActionDischarge}
	for i, r := range recs {
		assert.Equal(t, want[i], r.Action, "step %d", i)
		assert.Equal(t, t0.Add(time.Duration(i)*time.Hour), r.Time)
		assert.GreaterOrEqual(t, r.SoCAfter, 0.1-1e-12)
		assert.LessOrEqual(t, r.SoCAfter, 0.9+1e-12)
		if i > 0 {
			assert.Equal(t, recs[i-1].SoCAfter, r.SoCBefore)
		}
	}

	assert.InDelta(t, 50, recs[1].Energy, 1e-9)
	assert.InDelta(t, 4500, recs[1].Revenue, 1e-9)
	assert.InDelta(t, 0.9-50/0.9/100, recs[1].SoCAfter, 1e-12)
	assert.InDelta(t, 45, recs[3].Energy, 1e-9)
	assert.InDelta(t, -450, recs[3].Revenue, 1e-9)
	assert.InDelta(t, 4750, recs[4].Revenue, 1e-9)
	assert.Zero(t, recs[0].Energy)
	assert.Zero(t, recs[2].Revenue)

	sum := model.Summarize(recs, scenarioParams)
	assert.InDelta(t, 8800, sum.Revenue, 1e-9)
	assert.InDelta(t, b.SoC(), sum.FinalSoC, 1e-12)

	assert.Equal(t, 5, log.steps)
	assert.Equal(t, []string{"simulation finished"}, log.infos)
}

type scriptedStrategy struct {
	failAt int
	calls  int
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) Decide(strategy.Context) (model.Action, error) {
	s.calls++
	if s.calls == s.failAt {
		return model.ActionIdle, &strategy.SolverError{Err: errors.New("boom")}
	}
	return model.ActionDischarge, nil
}

func TestRun_StrategyErrorStopsRun(t *testing.T) {
	b, err := model.NewBattery(scenarioParams)
	require.NoError(t, err)
	log := &captureLogger{}
	sim := &Simulator{Log: log}

	recs, err := sim.Run(context.Background(), hourly(10, 20, 30, 40), b, &scriptedStrategy{failAt: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, strategy.ErrSolverFailure)
	assert.Contains(t, err.Error(), t0.Add(2*time.Hour).Format(time.RFC3339))
	assert.Len(t, recs, 2)
	assert.Equal(t, 1, log.errors)
	assert.InDelta(t, recs[1].SoCAfter, b.SoC(), 1e-12, "no action applied for the failed step")
}

func TestRun_ContextCanceled(t *testing.T) {
	b, err := model.NewBattery(scenarioParams)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	sim := New(ObserverFunc(func(rec model.DispatchRecord, _ time.Duration) {
		if rec.Time.Equal(t0.Add(time.Hour)) {
			cancel()
		}
	}))
	recs, err := sim.Run(ctx, hourly(1, 2, 3, 4), b, strategy.NewThreshold())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, recs, 2)
}

func TestRun_InvalidInput(t *testing.T) {
	b, err := model.NewBattery(scenarioParams)
	require.NoError(t, err)
	sim := New()

	_, err = sim.Run(context.Background(), nil, b, strategy.NewThreshold())
	assert.ErrorIs(t, err, model.ErrEmptySeries)

	unordered := model.PriceSeries{{Time: t0.Add(time.Hour), Price: 1}, {Time: t0, Price: 2}}
	_, err = sim.Run(context.Background(), unordered, b, strategy.NewThreshold())
	assert.ErrorIs(t, err, model.ErrUnorderedSeries)

	_, err = sim.Run(context.Background(), hourly(1), nil, strategy.NewThreshold())
	assert.Error(t, err)
}

func TestRun_ObserversSeeEveryStep(t *testing.T) {
	b, err := model.NewBattery(scenarioParams)
	require.NoError(t, err)
	var seen []model.Action
	sim := New(ObserverFunc(func(rec model.DispatchRecord, d time.Duration) {
		assert.GreaterOrEqual(t, d, time.Duration(0))
		seen = append(seen, rec.Action)
	}))
	recs, err := sim.Run(context.Background(), hourly(90, 10, 50), b, strategy.NewThreshold())
	require.NoError(t, err)
	require.Len(t, seen, len(recs))
	for i := range recs {
		assert.Equal(t, recs[i].Action, seen[i])
	}
}

func TestRun_TimestepScalesEnergy(t *testing.T) {
	b, err := model.NewBattery(scenarioParams)
	require.NoError(t, err)
	sim := &Simulator{Timestep: 30 * time.Minute}
	series := model.PriceSeries{{Time: t0, Price: 100}, {Time: t0.Add(30 * time.Minute), Price: 100}}
	recs, err := sim.Run(context.Background(), series, b, strategy.NewThreshold())
	require.NoError(t, err)
	assert.InDelta(t, 25, recs[0].Energy, 1e-9)
	assert.InDelta(t, 25, recs[1].Energy, 1e-9)
}

func TestRun_LookAheadStrategiesKeepBand(t *testing.T) {
	prices := []float64{42, 18, 7, 66, 91, 35, 12, 88, 120, 15, 60, 5}
	horizon, err := strategy.NewHorizonSearch(4)
	require.NoError(t, err)
	optimal, err := strategy.NewOptimalDispatch(4)
	require.NoError(t, err)

	for _, strat := range []strategy.Strategy{horizon, optimal} {
		t.Run(strat.Name(), func(t *testing.T) {
			b, err := model.NewBattery(scenarioParams)
			require.NoError(t, err)
			recs, err := New().Run(context.Background(), hourly(prices...), b, strat)
			require.NoError(t, err)
			require.Len(t, recs, len(prices))
			for _, r := range recs {
				assert.GreaterOrEqual(t, r.SoCAfter, 0.1-1e-12)
				assert.LessOrEqual(t, r.SoCAfter, 0.9+1e-12)
			}
			assert.Greater(t, model.Summarize(recs, scenarioParams).Revenue, 0.0)
		})
	}
}

func TestRun_DayAheadOptimalDispatch(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	prices := make([]float64, 72)
	for i := range prices {
		hour := float64(i % 24)
		prices[i] = (55 + 35*math.Cos(2*math.Pi*(hour-18)/24)) * (1 + (rng.Float64()*2-1)*0.1)
	}
	optimal, err := strategy.NewOptimalDispatch(strategy.MaxOptimalHorizon)
	require.NoError(t, err)
	b, err := model.NewBattery(scenarioParams)
	require.NoError(t, err)

	recs, err := New().Run(context.Background(), hourly(prices...), b, optimal)
	require.NoError(t, err)
	require.Len(t, recs, len(prices))
	for _, r := range recs {
		assert.GreaterOrEqual(t, r.SoCAfter, 0.1-1e-12)
		assert.LessOrEqual(t, r.SoCAfter, 0.9+1e-12)
	}
	assert.Greater(t, model.Summarize(recs, scenarioParams).Revenue, 0.0)
}
