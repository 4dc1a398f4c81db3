package strategy

import (
	"fmt"

	"github.com/kilianp07/arbitrage/core/model"
)

const (
	DefaultLowThreshold  = 25.0
	DefaultHighThreshold = 80.0
)

// Threshold charges below Low and discharges above High.
type Threshold struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// NewThreshold returns a Threshold with the default 25/80 bounds.
func NewThreshold() Threshold {
	return Threshold{Low: DefaultLowThreshold, High: DefaultHighThreshold}
}

// Validate checks the bounds are ordered.
func (t Threshold) Validate() error {
	if t.Low > t.High {
		return model.NewConfigurationError("low", fmt.Sprintf("%.2f above high %.2f", t.Low, t.High))
	}
	return nil
}

func (Threshold) Name() string { return "threshold" }

// Action maps a single price to an action.
func (t Threshold) Action(price float64) model.Action {
	switch {
	case price < t.Low:
		return model.ActionCharge
	case price > t.High:
		return model.ActionDischarge
	default:
		return model.ActionIdle
	}
}

// Decide implements Strategy using the current price only.
func (t Threshold) Decide(ctx Context) (model.Action, error) {
	return t.Action(ctx.Price), nil
}
