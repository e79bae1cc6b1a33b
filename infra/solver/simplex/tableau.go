package simplex

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	errTableauInfeasible = errors.New("simplex: tableau infeasible")
	errTableauUnbounded  = errors.New("simplex: tableau unbounded")
)

// tableau is a dense two phase simplex using Bland's rule. Columns are the
// structural columns, one artificial per row, then the right hand side.
type tableau struct {
	rows  [][]float64
	obj   []float64
	basis []int
	n     int
	tol   float64
}

// solveTableau minimises cᵀy subject to Ay = b, y ≥ 0 with b ≥ 0.
func solveTableau(c []float64, a [][]float64, b []float64, tol float64) (float64, []float64, error) {
	n, m := len(c), len(a)
	width := n + m + 1
	t := &tableau{
		rows:  make([][]float64, m),
		obj:   make([]float64, width),
		basis: make([]int, m),
		n:     n,
		tol:   tol,
	}
	for i := range a {
		row := make([]float64, width)
		copy(row, a[i])
		row[n+i] = 1
		row[width-1] = b[i]
		t.rows[i], t.basis[i] = row, n+i
	}
	limit := 50*(n+m) + 1000

	// Phase one minimises the sum of the artificials.
	for i := 0; i < m; i++ {
		t.obj[n+i] = 1
	}
	for _, row := range t.rows {
		floats.AddScaled(t.obj, -1, row)
	}
	if err := t.iterate(width-1, limit); err != nil {
		if errors.Is(err, errTableauUnbounded) {
			return 0, nil, fmt.Errorf("phase one: %w", err)
		}
		return 0, nil, err
	}
	if -t.obj[width-1] > tol*(1+floats.Sum(b)) {
		return 0, nil, errTableauInfeasible
	}
	t.dropArtificials()

	// Phase two prices the structural columns only.
	for j := range t.obj {
		t.obj[j] = 0
	}
	copy(t.obj, c)
	for i, bv := range t.basis {
		if f := t.obj[bv]; f != 0 {
			floats.AddScaled(t.obj, -f, t.rows[i])
		}
	}
	if err := t.iterate(n, limit); err != nil {
		return 0, nil, err
	}

	y := make([]float64, n)
	for i, bv := range t.basis {
		if bv < n {
			y[bv] = math.Max(t.rows[i][width-1], 0)
		}
	}
	return floats.Dot(c, y), y, nil
}

// iterate pivots until no column below limitCol has a negative reduced
// cost.
func (t *tableau) iterate(limitCol, maxPivots int) error {
	rhs := len(t.obj) - 1
	for k := 0; k < maxPivots; k++ {
		enter := -1
		for j := 0; j < limitCol; j++ {
			if t.obj[j] < -t.tol {
				enter = j
				break
			}
		}
		if enter < 0 {
			return nil
		}
		leave := -1
		best := math.Inf(1)
		for i, row := range t.rows {
			if row[enter] <= t.tol {
				continue
			}
			ratio := row[rhs] / row[enter]
			switch {
			case ratio < best-1e-12:
				best, leave = ratio, i
			case ratio <= best+1e-12 && t.basis[i] < t.basis[leave]:
				leave = i
			}
		}
		if leave < 0 {
			return errTableauUnbounded
		}
		t.pivot(leave, enter)
	}
	return fmt.Errorf("simplex: no convergence after %d pivots", maxPivots)
}

func (t *tableau) pivot(r, e int) {
	pr := t.rows[r]
	floats.Scale(1/pr[e], pr)
	pr[e] = 1
	for i, row := range t.rows {
		if i == r {
			continue
		}
		if f := row[e]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[e] = 0
		}
	}
	if f := t.obj[e]; f != 0 {
		floats.AddScaled(t.obj, -f, pr)
		t.obj[e] = 0
	}
	t.basis[r] = e
}

// dropArtificials pivots artificials left in the basis at zero onto a
// structural column. Rows with no structural entry are redundant and keep
// their artificial, which phase two never lets enter again.
func (t *tableau) dropArtificials() {
	for i, bv := range t.basis {
		if bv < t.n {
			continue
		}
		for j := 0; j < t.n; j++ {
			if math.Abs(t.rows[i][j]) > t.tol {
				t.pivot(i, j)
				break
			}
		}
	}
}
