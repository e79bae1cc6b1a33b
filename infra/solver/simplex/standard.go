package simplex

import (
	"math"

	"github.com/kilianp07/bmu-balancer/core/optimize"
)

// standardForm is a relaxation rewritten as
//
//	minimise cᵀy  subject to  Ay = b, y ≥ 0, b ≥ 0
//
// where y[:n] are the model variables shifted by their lower bound and the
// remaining columns are slacks of inequality and upper bound rows.
type standardForm struct {
	c     []float64
	a     [][]float64
	b     []float64
	n     int
	shift []float64
}

type stdRow struct {
	coef  []float64
	sense optimize.Sense
	rhs   float64
}

// newStandardForm builds the standard form of m under the node bounds. It
// reports false when a row without terms cannot hold.
func newStandardForm(m *optimize.Model, c []float64, nd node) (*standardForm, bool) {
	n := len(m.Variables)
	var rows []stdRow
	for i := 0; i < n; i++ {
		if nd.lower[i] > nd.upper[i] {
			return nil, false
		}
		if !math.IsInf(nd.upper[i], 1) {
			row := make([]float64, n)
			row[i] = 1
			rows = append(rows, stdRow{coef: row, sense: optimize.LE, rhs: nd.upper[i] - nd.lower[i]})
		}
	}
	for _, con := range m.Constraints {
		if len(con.Terms) == 0 {
			if !emptyRowHolds(con) {
				return nil, false
			}
			continue
		}
		row := make([]float64, n)
		rhs := con.RHS
		for _, t := range con.Terms {
			row[t.Var] += t.Coef
			rhs -= t.Coef * nd.lower[t.Var]
		}
		rows = append(rows, stdRow{coef: row, sense: con.Sense, rhs: rhs})
	}

	slacks := 0
	for _, r := range rows {
		if r.sense != optimize.EQ {
			slacks++
		}
	}
	width := n + slacks
	sf := &standardForm{
		c:     make([]float64, width),
		a:     make([][]float64, len(rows)),
		b:     make([]float64, len(rows)),
		n:     n,
		shift: append([]float64(nil), nd.lower...),
	}
	copy(sf.c, c)
	col := n
	for i, r := range rows {
		row := make([]float64, width)
		copy(row, r.coef)
		switch r.sense {
		case optimize.LE:
			row[col] = 1
			col++
		case optimize.GE:
			row[col] = -1
			col++
		}
		rhs := r.rhs
		if rhs < 0 {
			for j := range row {
				row[j] = -row[j]
			}
			rhs = -rhs
		}
		sf.a[i], sf.b[i] = row, rhs
	}
	return sf, true
}

// feasible reports whether y satisfies Ay = b and y ≥ 0 within tol,
// scaled by the magnitude of each row.
func (sf *standardForm) feasible(y []float64, tol float64) bool {
	if len(y) != len(sf.c) {
		return false
	}
	for _, v := range y {
		if math.IsNaN(v) || v < -tol {
			return false
		}
	}
	for i, row := range sf.a {
		lhs, scale := 0.0, 1+math.Abs(sf.b[i])
		for j, v := range row {
			lhs += v * y[j]
			scale += math.Abs(v * y[j])
		}
		if math.Abs(lhs-sf.b[i]) > tol*scale {
			return false
		}
	}
	return true
}

// values maps a standard form point back to model variables.
func (sf *standardForm) values(y []float64) []float64 {
	x := make([]float64, sf.n)
	for i := range x {
		x[i] = math.Max(y[i], 0) + sf.shift[i]
	}
	return x
}
