package strategy

import (
	"github.com/kilianp07/arbitrage/core/factory"
	"github.com/kilianp07/arbitrage/core/solver"
)

// Registry holds the strategy factories known to the application.
var Registry = factory.NewRegistry[Strategy]()

type optimalConf struct {
	Horizon   int     `json:"horizon"`
	MaxNodes  int     `json:"max_nodes"`
	Tolerance float64 `json:"tolerance"`
}

func init() {
	Registry.MustRegister("threshold", func(conf map[string]any) (Strategy, error) {
		t := NewThreshold()
		if err := factory.Decode(conf, &t); err != nil {
			return nil, err
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		return t, nil
	})
	Registry.MustRegister("horizon", func(conf map[string]any) (Strategy, error) {
		h := HorizonSearch{Horizon: DefaultHorizon}
		if err := factory.Decode(conf, &h); err != nil {
			return nil, err
		}
		if err := h.Validate(); err != nil {
			return nil, err
		}
		return h, nil
	})
	Registry.MustRegister("optimal", func(conf map[string]any) (Strategy, error) {
		c := optimalConf{Horizon: DefaultHorizon, MaxNodes: solver.DefaultMaxNodes, Tolerance: solver.DefaultTolerance}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		o := OptimalDispatch{
			Horizon: c.Horizon,
			Solver:  solver.BranchAndBound{MaxNodes: c.MaxNodes, Tolerance: c.Tolerance},
		}
		if err := o.Validate(); err != nil {
			return nil, err
		}
		return o, nil
	})
}

// New builds a strategy from its module configuration.
func New(cfg factory.ModuleConfig) (Strategy, error) {
	return Registry.Create(cfg)
}
