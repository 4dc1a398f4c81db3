// Package strategy implements the dispatch policies that choose whether a
// battery charges, discharges or idles during the next time step.
//
// Every Strategy is stateless: the same Context always yields the same
// Action. Look-ahead strategies only ever simulate on copies of the battery
// carried by the Context; the live battery is mutated by the simulation loop
// alone.
package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/arbitrage/core/model"
)

// DefaultStep is the time step assumed when a Context leaves Step unset.
const DefaultStep = time.Hour

// Context carries what a strategy may look at to take a decision.
type Context struct {
	Time    time.Time
	Price   float64
	Series  model.PriceSeries
	Battery model.Battery // snapshot of the live battery
	Step    time.Duration
}

func (c Context) step() time.Duration {
	if c.Step <= 0 {
		return DefaultStep
	}
	return c.Step
}

// Strategy decides the action for the time step described by ctx.
type Strategy interface {
	Name() string
	Decide(ctx Context) (model.Action, error)
}

// ErrSolverFailure is matched by every SolverError.
var ErrSolverFailure = errors.New("solver failure")

// SolverError reports that the optimisation backing a decision did not return
// a usable optimal assignment. It is distinct from an Idle decision.
type SolverError struct {
	Time time.Time
	Err  error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("%s at %s: %v", ErrSolverFailure, e.Time.Format(time.RFC3339), e.Err)
}

func (e *SolverError) Unwrap() error { return e.Err }

// Is reports ErrSolverFailure as a match.
func (e *SolverError) Is(target error) bool { return target == ErrSolverFailure }
