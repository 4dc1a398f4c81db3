package strategy

import (
	"fmt"
	"math"

	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/solver"
)

// MaxOptimalHorizon caps OptimalDispatch at one day of hourly prices. Each
// decision solves a program with 2h binaries and 2h rows.
const MaxOptimalHorizon = 24

// Solver is the MILP backend used by OptimalDispatch.
type Solver interface {
	Solve(p solver.Problem) (solver.Solution, error)
}

// OptimalDispatch solves a binary program over the forecast horizon and
// returns the first action of the optimal plan.
//
// The objective values a step at full rated power and ignores efficiency,
// while the SoC constraints apply it. HorizonSearch values steps with the
// clipped, efficiency-scaled energy instead, so both strategies can disagree
// on the same window.
type OptimalDispatch struct {
	Horizon int    `json:"horizon"`
	Solver  Solver `json:"-"`
}

// NewOptimalDispatch returns an OptimalDispatch backed by a default
// branch-and-bound solver.
func NewOptimalDispatch(horizon int) (OptimalDispatch, error) {
	o := OptimalDispatch{Horizon: horizon, Solver: solver.NewBranchAndBound()}
	if err := o.Validate(); err != nil {
		return OptimalDispatch{}, err
	}
	return o, nil
}

// Validate checks the horizon and solver.
func (o OptimalDispatch) Validate() error {
	if o.Horizon < 1 || o.Horizon > MaxOptimalHorizon {
		return model.NewConfigurationError("horizon", fmt.Sprintf("%d outside [1, %d]", o.Horizon, MaxOptimalHorizon))
	}
	if o.Solver == nil {
		return model.NewConfigurationError("solver", "missing")
	}
	return nil
}

func (OptimalDispatch) Name() string { return "optimal" }

// Decide implements Strategy. Any solver error is returned as a *SolverError.
func (o OptimalDispatch) Decide(ctx Context) (model.Action, error) {
	if err := o.Validate(); err != nil {
		return model.ActionIdle, err
	}
	prices, err := ctx.Series.Window(ctx.Time, o.Horizon, ctx.step())
	if err != nil {
		return model.ActionIdle, err
	}
	sol, err := o.Solver.Solve(BuildProblem(prices, ctx.Battery, ctx.step().Hours()))
	if err != nil {
		return model.ActionIdle, &SolverError{Time: ctx.Time, Err: err}
	}
	if len(sol.X) != 2*len(prices) {
		return model.ActionIdle, &SolverError{Time: ctx.Time, Err: fmt.Errorf("solution has %d values, want %d", len(sol.X), 2*len(prices))}
	}
	switch {
	case sol.X[0] > 0.5:
		return model.ActionCharge, nil
	case sol.X[len(prices)] > 0.5:
		return model.ActionDischarge, nil
	default:
		return model.ActionIdle, nil
	}
}

// BuildProblem formulates the dispatch program for prices. Variable t is the
// charge flag of step t and variable h+t its discharge flag.
func BuildProblem(prices []float64, battery model.Battery, stepH float64) solver.Problem {
	h := len(prices)
	n := 2 * h
	p := solver.Problem{
		Sense:     solver.Maximize,
		Objective: make([]float64, n),
		Lower:     make([]float64, n),
		Upper:     make([]float64, n),
		Integer:   make([]bool, n),
	}
	for j := 0; j < n; j++ {
		p.Upper[j] = 1
		p.Integer[j] = true
	}
	for t, price := range prices {
		p.Objective[t] = -price
		p.Objective[h+t] = price
	}

	power := battery.PowerLimit() * stepH
	eff := battery.Efficiency()
	params := battery.Params()
	socInit := battery.SoCKWh()
	for t := 0; t < h; t++ {
		// soc after step t = socInit + sum over i<=t of the flagged moves
		row := make([]float64, n)
		for i := 0; i <= t; i++ {
			row[i] = power * eff
			row[h+i] = -power / eff
		}
		p.Constraints = append(p.Constraints, solver.Constraint{
			Coeffs: row,
			Lower:  params.LowerKWh() - socInit,
			Upper:  params.UpperKWh() - socInit,
		})
	}
	for t := 0; t < h; t++ {
		row := make([]float64, n)
		row[t], row[h+t] = 1, 1
		p.Constraints = append(p.Constraints, solver.Constraint{Coeffs: row, Lower: math.Inf(-1), Upper: 1})
	}
	return p
}
