// Package solver solves small mixed-integer linear programs by branch and
// bound over LP relaxations. Relaxations run a bounded-variable simplex on a
// gonum dense tableau.
package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Sense selects the optimisation direction.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// Constraint bounds a linear combination of the variables:
// Lower <= Coeffs·x <= Upper. Use math.Inf to leave a side open.
type Constraint struct {
	Coeffs []float64
	Lower  float64
	Upper  float64
}

// Problem is a MILP in general form.
type Problem struct {
	Sense       Sense
	Objective   []float64
	Constraints []Constraint
	// Lower and Upper bound each variable. A nil Lower means 0 and a nil Upper
	// means +Inf for every variable. Lower bounds must be finite.
	Lower []float64
	Upper []float64
	// Integer marks the variables restricted to integral values.
	Integer []bool
}

// NumVars returns the number of decision variables.
func (p Problem) NumVars() int { return len(p.Objective) }

// Solution holds the optimal assignment found by the solver.
type Solution struct {
	X         []float64
	Objective float64
	Nodes     int // relaxations solved
}

var (
	// ErrInfeasible is returned when no integral assignment satisfies the constraints.
	ErrInfeasible = errors.New("milp: infeasible")
	// ErrUnbounded is returned when the relaxation has no finite optimum.
	ErrUnbounded = errors.New("milp: unbounded")
	// ErrNodeLimit is returned when the search stops before proving optimality.
	ErrNodeLimit = errors.New("milp: node limit reached")
	// ErrInvalidProblem is returned for inconsistent dimensions.
	ErrInvalidProblem = errors.New("milp: invalid problem")
	// ErrNumerical is returned when a relaxation cannot be solved reliably.
	ErrNumerical = errors.New("milp: numerical failure")
)

const (
	DefaultMaxNodes  = 20000
	DefaultTolerance = 1e-6
)

// relaxation solves the LP relaxation of a node. Tests override it to
// simulate numerical failures.
var relaxation = relax

// BranchAndBound is a depth-first branch-and-bound MILP solver.
// The zero value uses DefaultMaxNodes and DefaultTolerance.
type BranchAndBound struct {
	MaxNodes  int
	Tolerance float64
}

// NewBranchAndBound returns a solver with default limits.
func NewBranchAndBound() BranchAndBound {
	return BranchAndBound{MaxNodes: DefaultMaxNodes, Tolerance: DefaultTolerance}
}

type node struct {
	lower, upper []float64
}

// Solve returns a proven optimal integral solution or an error. Partial
// results are never returned.
func (s BranchAndBound) Solve(p Problem) (Solution, error) {
	if err := p.validate(); err != nil {
		return Solution{}, err
	}
	maxNodes := s.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	n := p.NumVars()
	root := node{lower: make([]float64, n), upper: make([]float64, n)}
	for j := 0; j < n; j++ {
		root.lower[j] = 0
		if p.Lower != nil {
			root.lower[j] = p.Lower[j]
		}
		root.upper[j] = math.Inf(1)
		if p.Upper != nil {
			root.upper[j] = p.Upper[j]
		}
	}

	var (
		best     Solution
		haveBest bool
		nodes    int
	)
	stack := []node{root}
	for len(stack) > 0 {
		if nodes >= maxNodes {
			return Solution{}, fmt.Errorf("%w after %d nodes", ErrNodeLimit, nodes)
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		x, err := relaxation(p, nd.lower, nd.upper)
		switch {
		case errors.Is(err, errLPInfeasible):
			continue
		case errors.Is(err, ErrUnbounded) && boxed(nd):
			return Solution{}, fmt.Errorf("%w: relaxation reported unbounded on a bounded node", ErrNumerical)
		case errors.Is(err, ErrUnbounded):
			return Solution{}, ErrUnbounded
		case err != nil:
			return Solution{}, fmt.Errorf("relaxation: %w", err)
		}
		score := p.score(x)
		if haveBest && score <= p.score(best.X)+tol {
			continue
		}
		if cand, ok := p.rounded(x, nd, tol); ok && (!haveBest || p.score(cand) > p.score(best.X)+tol) {
			best = Solution{X: cand, Objective: p.value(cand)}
			haveBest = true
		}

		j, frac := mostFractional(x, p.Integer, tol)
		if j < 0 {
			for k, isInt := range p.Integer {
				if isInt {
					x[k] = math.Round(x[k])
				}
			}
			if !haveBest || p.score(x) > p.score(best.X)+tol {
				best = Solution{X: x, Objective: p.value(x)}
				haveBest = true
			}
			continue
		}

		down := node{lower: clone(nd.lower), upper: clone(nd.upper)}
		down.upper[j] = math.Floor(x[j])
		up := node{lower: clone(nd.lower), upper: clone(nd.upper)}
		up.lower[j] = math.Ceil(x[j])
		// the last pushed node is explored first
		if frac >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}
	if !haveBest {
		return Solution{}, ErrInfeasible
	}
	best.Nodes = nodes
	return best, nil
}

// relax solves the LP relaxation with the given variable bounds. Variables
// are shifted to start at zero and every two-sided constraint becomes one row
// with a ranged slack.
func relax(p Problem, lower, upper []float64) ([]float64, error) {
	n := p.NumVars()
	ub := make([]float64, n)
	for j := range ub {
		if lower[j] > upper[j] {
			return nil, errLPInfeasible
		}
		ub[j] = upper[j] - lower[j]
	}
	cost := make([]float64, n)
	for j, v := range p.Objective {
		if p.Sense == Maximize {
			v = -v
		}
		cost[j] = v
	}

	rows := make([]lpRow, 0, len(p.Constraints))
	for _, c := range p.Constraints {
		shift := floats.Dot(c.Coeffs, lower)
		lo, hi := c.Lower-shift, c.Upper-shift
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			continue
		case math.IsInf(hi, 1):
			neg := make([]float64, n)
			floats.ScaleTo(neg, -1, c.Coeffs)
			rows = append(rows, lpRow{coeffs: neg, rhs: -lo, slackUpper: math.Inf(1)})
		default:
			rows = append(rows, lpRow{coeffs: c.Coeffs, rhs: hi, slackUpper: hi - lo})
		}
	}

	y, err := solveBounded(cost, ub, rows)
	if err != nil {
		return nil, err
	}
	x := make([]float64, n)
	for j := range x {
		x[j] = lower[j] + y[j]
	}
	return x, nil
}

// rounded tries nearest then downward rounding of the integer variables of x
// and returns the first candidate that satisfies every constraint. It supplies
// incumbents early so that branch and bound prunes more nodes.
func (p Problem) rounded(x []float64, nd node, tol float64) ([]float64, bool) {
	for _, round := range []func(float64) float64{
		math.Round,
		func(v float64) float64 { return math.Floor(v + tol) },
	} {
		cand, ok := clone(x), true
		for j, isInt := range p.Integer {
			if !isInt {
				continue
			}
			cand[j] = math.Min(math.Max(round(x[j]), math.Ceil(nd.lower[j])), math.Floor(nd.upper[j]))
			ok = ok && cand[j] >= nd.lower[j] && cand[j] <= nd.upper[j]
		}
		if ok && p.feasible(cand) {
			return cand, true
		}
	}
	return nil, false
}

func (p Problem) feasible(x []float64) bool {
	for _, c := range p.Constraints {
		v := floats.Dot(c.Coeffs, x)
		if v < c.Lower-feasTol*(1+math.Abs(c.Lower)) || v > c.Upper+feasTol*(1+math.Abs(c.Upper)) {
			return false
		}
	}
	return true
}

func boxed(nd node) bool {
	for _, u := range nd.upper {
		if math.IsInf(u, 1) {
			return false
		}
	}
	return true
}

func (p Problem) validate() error {
	n := p.NumVars()
	if n == 0 {
		return fmt.Errorf("%w: no variables", ErrInvalidProblem)
	}
	if p.Lower != nil && len(p.Lower) != n {
		return fmt.Errorf("%w: %d lower bounds for %d variables", ErrInvalidProblem, len(p.Lower), n)
	}
	for j, v := range p.Lower {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Errorf("%w: lower bound of variable %d must be finite", ErrInvalidProblem, j)
		}
	}
	if p.Upper != nil && len(p.Upper) != n {
		return fmt.Errorf("%w: %d upper bounds for %d variables", ErrInvalidProblem, len(p.Upper), n)
	}
	if p.Integer != nil && len(p.Integer) != n {
		return fmt.Errorf("%w: %d integer flags for %d variables", ErrInvalidProblem, len(p.Integer), n)
	}
	for i, c := range p.Constraints {
		if len(c.Coeffs) != n {
			return fmt.Errorf("%w: constraint %d has %d coefficients", ErrInvalidProblem, i, len(c.Coeffs))
		}
		if c.Lower > c.Upper {
			return fmt.Errorf("%w: constraint %d lower above upper", ErrInvalidProblem, i)
		}
	}
	return nil
}

// value returns the objective value of x.
func (p Problem) value(x []float64) float64 {
	var v float64
	for j, c := range p.Objective {
		v += c * x[j]
	}
	return v
}

// score maps the objective so that larger is always better.
func (p Problem) score(x []float64) float64 {
	if p.Sense == Maximize {
		return p.value(x)
	}
	return -p.value(x)
}

func mostFractional(x []float64, integer []bool, tol float64) (int, float64) {
	idx, bestDist, bestFrac := -1, tol, 0.0
	for j, isInt := range integer {
		if !isInt {
			continue
		}
		frac := x[j] - math.Floor(x[j])
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			idx, bestDist, bestFrac = j, dist, frac
		}
	}
	return idx, bestFrac
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
