package strategy

import (
	"fmt"
	"math"

	"github.com/kilianp07/arbitrage/core/model"
)

const (
	// DefaultHorizon is the look-ahead length used when none is configured.
	DefaultHorizon = 6
	// MaxSearchHorizon caps HorizonSearch. The search replays 3^h sequences
	// of h steps each, 3^10 = 59049 sequences per decision at the cap.
	MaxSearchHorizon = 10
)

// searchOrder fixes the enumeration order, and therefore tie breaking.
var searchOrder = [3]model.Action{model.ActionCharge, model.ActionDischarge, model.ActionIdle}

// HorizonSearch tries every action sequence over the forecast horizon on a
// shadow copy of the battery and returns the first action of the most
// profitable one. Cost is O(3^Horizon * Horizon).
type HorizonSearch struct {
	Horizon int `json:"horizon"`
}

// NewHorizonSearch validates the horizon against MaxSearchHorizon.
func NewHorizonSearch(horizon int) (HorizonSearch, error) {
	h := HorizonSearch{Horizon: horizon}
	if err := h.Validate(); err != nil {
		return HorizonSearch{}, err
	}
	return h, nil
}

// Validate checks the horizon is tractable.
func (h HorizonSearch) Validate() error {
	if h.Horizon < 1 || h.Horizon > MaxSearchHorizon {
		return model.NewConfigurationError("horizon", fmt.Sprintf("%d outside [1, %d]", h.Horizon, MaxSearchHorizon))
	}
	return nil
}

func (HorizonSearch) Name() string { return "horizon" }

// Decide implements Strategy.
func (h HorizonSearch) Decide(ctx Context) (model.Action, error) {
	if err := h.Validate(); err != nil {
		return model.ActionIdle, err
	}
	prices, err := ctx.Series.Window(ctx.Time, h.Horizon, ctx.step())
	if err != nil {
		return model.ActionIdle, err
	}
	best, _ := h.Plan(prices, ctx.Battery, ctx.step().Hours())
	return best[0], nil
}

// Plan returns the best action sequence over prices and its revenue.
// Sequences are visited in lexicographic order of searchOrder with the last
// step varying fastest and only a strictly better revenue replaces the
// incumbent, so the earliest optimum wins.
func (h HorizonSearch) Plan(prices []float64, battery model.Battery, stepH float64) ([]model.Action, float64) {
	n := len(prices)
	digits := make([]int, n)
	seq := make([]model.Action, n)
	best := make([]model.Action, n)
	bestRevenue := math.Inf(-1)

	for {
		for i, d := range digits {
			seq[i] = searchOrder[d]
		}
		if r := replay(seq, prices, battery, stepH); r > bestRevenue {
			bestRevenue = r
			copy(best, seq)
		}
		// odometer increment, last position fastest
		i := n - 1
		for ; i >= 0; i-- {
			digits[i]++
			if digits[i] < len(searchOrder) {
				break
			}
			digits[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return best, bestRevenue
}

// replay runs seq on a private copy of battery, with the same arithmetic as
// the simulation loop, and returns the accumulated revenue.
func replay(seq []model.Action, prices []float64, battery model.Battery, stepH float64) float64 {
	shadow := battery
	var revenue float64
	for i, a := range seq {
		switch a {
		case model.ActionCharge:
			revenue -= shadow.Charge(shadow.PowerLimit(), stepH) * prices[i]
		case model.ActionDischarge:
			revenue += shadow.Discharge(shadow.PowerLimit(), stepH) * prices[i]
		}
	}
	return revenue
}
