package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	pivotTol = 1e-9
	costTol  = 1e-9
	feasTol  = 1e-7
)

// errLPInfeasible reports an infeasible relaxation. Branch and bound prunes
// the node instead of failing.
var errLPInfeasible = errors.New("lp: infeasible")

// lpRow is coeffs·y + s = rhs with the row slack s in [0, slackUpper].
type lpRow struct {
	coeffs     []float64
	rhs        float64
	slackUpper float64
}

// tableau holds B⁻¹A for a bounded-variable primal simplex. Every column has
// a lower bound of zero; nonbasic columns rest at zero or at their upper bound.
type tableau struct {
	t       *mat.Dense
	beta    []float64 // value of the basic column of each row
	basis   []int     // basic column of each row
	pos     []int     // row of a basic column, -1 when nonbasic
	atUpper []bool
	upper   []float64
}

// solveBounded minimises cost·y subject to rows and 0 <= y <= ub.
// The slack of each row starts in the basis. Rows whose slack would start out
// of bounds get an artificial column that a first phase drives to zero.
func solveBounded(cost, ub []float64, rows []lpRow) ([]float64, error) {
	n, m := len(cost), len(rows)
	if m == 0 {
		return solveBox(cost, ub)
	}
	nArt := 0
	for _, r := range rows {
		if r.rhs < 0 || r.rhs > r.slackUpper {
			nArt++
		}
	}
	ncol := n + m + nArt
	tb := &tableau{
		t:       mat.NewDense(m, ncol, nil),
		beta:    make([]float64, m),
		basis:   make([]int, m),
		pos:     make([]int, ncol),
		atUpper: make([]bool, ncol),
		upper:   make([]float64, ncol),
	}
	copy(tb.upper, ub)
	for j := range tb.pos {
		tb.pos[j] = -1
	}

	phase1 := make([]float64, ncol)
	arts := make([]int, 0, nArt)
	scale := 1.0
	for i, r := range rows {
		row := tb.t.RawRowView(i)
		copy(row, r.coeffs)
		slack := n + i
		row[slack] = 1
		tb.upper[slack] = r.slackUpper
		scale = math.Max(scale, math.Abs(r.rhs))

		basic, value := slack, r.rhs
		switch {
		case r.rhs < 0:
			art := n + m + len(arts)
			arts = append(arts, art)
			row[art] = -1
			floats.Scale(-1, row)
			basic, value = art, -r.rhs
		case r.rhs > r.slackUpper:
			art := n + m + len(arts)
			arts = append(arts, art)
			row[art] = 1
			tb.atUpper[slack] = true
			basic, value = art, r.rhs-r.slackUpper
		}
		tb.basis[i] = basic
		tb.pos[basic] = i
		tb.beta[i] = value
	}
	for _, art := range arts {
		tb.upper[art] = math.Inf(1)
		phase1[art] = 1
	}

	if len(arts) > 0 {
		if err := tb.run(phase1); err != nil {
			return nil, err
		}
		var residual float64
		for i, b := range tb.basis {
			residual += phase1[b] * tb.beta[i]
		}
		if residual > feasTol*scale {
			return nil, errLPInfeasible
		}
		// artificials stay in the model fixed at zero
		for _, art := range arts {
			tb.upper[art] = 0
			tb.atUpper[art] = false
			if i := tb.pos[art]; i >= 0 {
				tb.beta[i] = 0
			}
		}
	}

	phase2 := make([]float64, ncol)
	copy(phase2, cost)
	if err := tb.run(phase2); err != nil {
		return nil, err
	}

	y := make([]float64, n)
	for j := range y {
		switch {
		case tb.pos[j] >= 0:
			y[j] = tb.beta[tb.pos[j]]
		case tb.atUpper[j]:
			y[j] = tb.upper[j]
		}
		y[j] = math.Min(math.Max(y[j], 0), ub[j])
	}
	return y, nil
}

// solveBox handles a program without rows: each variable sits at the bound
// its cost favours.
func solveBox(cost, ub []float64) ([]float64, error) {
	y := make([]float64, len(cost))
	for j, c := range cost {
		if c >= 0 {
			continue
		}
		if math.IsInf(ub[j], 1) {
			return nil, ErrUnbounded
		}
		y[j] = ub[j]
	}
	return y, nil
}

// run iterates until no nonbasic column improves cost. Pricing picks the
// largest reduced cost and switches to Bland's rule after a run of
// degenerate steps so the method cannot cycle.
func (tb *tableau) run(cost []float64) error {
	m, ncol := tb.t.Dims()
	d := make([]float64, ncol)
	col := make([]float64, m)
	degenerate := 0
	limit := 50*(m+ncol) + 1000
	for iter := 0; iter < limit; iter++ {
		copy(d, cost)
		for i, b := range tb.basis {
			if cb := cost[b]; cb != 0 {
				floats.AddScaled(d, -cb, tb.t.RawRowView(i))
			}
		}
		enter, dir := tb.entering(d, degenerate > m)
		if enter < 0 {
			return nil
		}
		mat.Col(col, enter, tb.t)

		// a bound flip of the entering column competes with the row limits
		theta := tb.upper[enter]
		leave, leaveAtUpper := -1, false
		for i := 0; i < m; i++ {
			alpha := dir * col[i]
			var step float64
			toUpper := false
			switch {
			case alpha > pivotTol:
				step = math.Max(tb.beta[i], 0) / alpha
			case alpha < -pivotTol:
				u := tb.upper[tb.basis[i]]
				if math.IsInf(u, 1) {
					continue
				}
				step = math.Max(u-tb.beta[i], 0) / -alpha
				toUpper = true
			default:
				continue
			}
			if step < theta || (leave >= 0 && step == theta && tb.basis[i] < tb.basis[leave]) {
				theta, leave, leaveAtUpper = step, i, toUpper
			}
		}
		if math.IsInf(theta, 1) {
			return ErrUnbounded
		}
		if theta > 0 {
			degenerate = 0
			for i := 0; i < m; i++ {
				tb.beta[i] -= dir * theta * col[i]
			}
		} else {
			degenerate++
		}
		if leave < 0 {
			tb.atUpper[enter] = !tb.atUpper[enter]
			continue
		}

		value := dir * theta
		if tb.atUpper[enter] {
			value += tb.upper[enter]
		}
		out := tb.basis[leave]
		tb.pivot(leave, enter)
		tb.basis[leave] = enter
		tb.pos[enter] = leave
		tb.atUpper[enter] = false
		tb.beta[leave] = value
		tb.pos[out] = -1
		tb.atUpper[out] = leaveAtUpper
	}
	return fmt.Errorf("%w: simplex iteration limit", ErrNumerical)
}

// entering returns the column to move and its direction, +1 away from the
// lower bound and -1 away from the upper bound, or -1 when optimal.
func (tb *tableau) entering(d []float64, bland bool) (int, float64) {
	best, dir, score := -1, 0.0, costTol
	for j, dj := range d {
		if tb.pos[j] >= 0 || tb.upper[j] <= 0 {
			continue
		}
		s, dr := -dj, 1.0
		if tb.atUpper[j] {
			s, dr = dj, -1
		}
		if s <= costTol {
			continue
		}
		if bland {
			return j, dr
		}
		if s > score {
			best, dir, score = j, dr, s
		}
	}
	return best, dir
}

func (tb *tableau) pivot(r, c int) {
	m, _ := tb.t.Dims()
	prow := tb.t.RawRowView(r)
	floats.Scale(1/prow[c], prow)
	prow[c] = 1
	for i := 0; i < m; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[c]; f != 0 {
			floats.AddScaled(row, -f, prow)
			row[c] = 0
		}
	}
}
