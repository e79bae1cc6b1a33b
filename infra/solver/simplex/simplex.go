// Package simplex answers optimize models with a depth first branch and
// bound over LP relaxations. Relaxations go to gonum's simplex first; its
// answers are checked against the rows and a dense Bland's rule tableau
// answers whenever gonum fails or returns a point that does not hold.
package simplex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/bmu-balancer/core/factory"
	"github.com/kilianp07/bmu-balancer/core/logger"
	"github.com/kilianp07/bmu-balancer/core/optimize"
)

// Name is the registry name of this solver.
const Name = "simplex"

const (
	// DefaultMaxNodes bounds the branch and bound search when unset.
	DefaultMaxNodes = 10000
	// DefaultTolerance is the pivoting tolerance when unset.
	DefaultTolerance = 1e-7
	integralityTol   = 1e-6
	feasibilityTol   = 1e-6
)

// Config tunes the search.
type Config struct {
	// MaxNodes bounds the number of relaxations explored. When reached the
	// model is reported as not solved.
	MaxNodes int `json:"max_nodes"`
	// Tolerance is handed to the simplex as its reduced cost tolerance.
	Tolerance float64 `json:"tolerance"`
	// TimeoutMS bounds a single Solve call; zero relies on the caller context.
	TimeoutMS int `json:"timeout_ms"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MaxNodes <= 0 {
		c.MaxNodes = DefaultMaxNodes
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
}

// Solver implements optimize.Solver.
type Solver struct {
	cfg    Config
	logger logger.Logger
}

// New returns a solver using cfg with defaults applied.
func New(cfg Config, log logger.Logger) *Solver {
	cfg.SetDefaults()
	return &Solver{cfg: cfg, logger: logger.OrNop(log)}
}

func init() {
	_ = optimize.RegisterSolver(Name, func(conf map[string]any) (optimize.Solver, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, fmt.Errorf("simplex config: %w", err)
		}
		return New(c, nil), nil
	})
}

// gonumSimplex solves a standard form relaxation with gonum. Shape panics
// are reported as errors so the tableau can take over.
func gonumSimplex(c []float64, a mat.Matrix, b []float64, tol float64) (f float64, x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gonum simplex: %v", r)
		}
	}()
	return lp.Simplex(c, a, b, tol, nil)
}

// lpSolve points to the function used to solve relaxations first. It can be
// overridden in tests to simulate solver failures.
var lpSolve = gonumSimplex

type node struct {
	lower, upper []float64
	depth        int
}

// Solve implements optimize.Solver.
func (s *Solver) Solve(ctx context.Context, m *optimize.Model) (optimize.Result, error) {
	if err := m.Validate(); err != nil {
		return optimize.Result{Status: optimize.StatusNotSolved}, err
	}
	if s.cfg.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutMS)*time.Millisecond)
		defer cancel()
	}
	if len(m.Variables) == 0 {
		if !m.Satisfied(nil, integralityTol) {
			return optimize.Result{Status: optimize.StatusInfeasible}, nil
		}
		return optimize.Result{Status: optimize.StatusOptimal, Objective: m.Offset, Values: []float64{}}, nil
	}

	sign := 1.0
	if m.Direction == optimize.Maximize {
		sign = -1
	}
	c := make([]float64, len(m.Variables))
	for _, t := range m.Objective {
		c[t.Var] += sign * t.Coef
	}

	satTol := feasibilityTol * rowScale(m)
	bounded := finiteBounds(m)
	root := node{lower: make([]float64, len(m.Variables)), upper: make([]float64, len(m.Variables))}
	for i, v := range m.Variables {
		root.lower[i], root.upper[i] = v.Lower, v.Upper
	}

	var (
		stack     = []node{root}
		incumbent []float64
		bestF     = math.Inf(1)
		nodes     int
		maxDepth  int
		started   = time.Now()
	)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return optimize.Result{Status: optimize.StatusNotSolved, Nodes: nodes}, fmt.Errorf("simplex after %d nodes: %w", nodes, err)
		}
		if nodes >= s.cfg.MaxNodes {
			s.logger.Warnf("simplex node limit %d reached for %s", s.cfg.MaxNodes, m.Name)
			return optimize.Result{Status: optimize.StatusNotSolved, Nodes: nodes}, nil
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++
		maxDepth = max(maxDepth, nd.depth)

		f, x, status, err := s.relax(m, c, nd)
		if err != nil {
			return optimize.Result{Status: optimize.StatusNotSolved, Nodes: nodes}, err
		}
		switch status {
		case optimize.StatusInfeasible:
			continue
		case optimize.StatusUnbounded:
			if bounded {
				return optimize.Result{Status: optimize.StatusNotSolved, Nodes: nodes},
					fmt.Errorf("simplex: relaxation of bounded model %s reported unbounded", m.Name)
			}
			return optimize.Result{Status: optimize.StatusUnbounded, Nodes: nodes}, nil
		}
		if f >= bestF-s.cfg.Tolerance {
			continue
		}

		branch := mostFractional(m, x)
		if branch < 0 {
			cand, cf, ok, err := s.settle(m, c, x, f, satTol)
			if err != nil {
				return optimize.Result{Status: optimize.StatusNotSolved, Nodes: nodes}, err
			}
			if ok && cf < bestF {
				bestF, incumbent = cf, cand
			}
			continue
		}
		down := nd.child()
		down.upper[branch] = math.Floor(x[branch])
		up := nd.child()
		up.lower[branch] = math.Ceil(x[branch])
		stack = append(stack, down, up)
	}

	s.logger.Debugw("simplex finished", map[string]any{
		"model":    m.Name,
		"nodes":    nodes,
		"depth":    maxDepth,
		"elapsed":  time.Since(started).String(),
		"feasible": incumbent != nil,
	})
	if incumbent == nil {
		return optimize.Result{Status: optimize.StatusInfeasible, Nodes: nodes}, nil
	}
	return optimize.Result{
		Status:    optimize.StatusOptimal,
		Objective: m.Evaluate(incumbent),
		Values:    incumbent,
		Nodes:     nodes,
	}, nil
}

func (n node) child() node {
	return node{
		lower: append([]float64(nil), n.lower...),
		upper: append([]float64(nil), n.upper...),
		depth: n.depth + 1,
	}
}

// relax solves the LP relaxation of m under the node bounds.
func (s *Solver) relax(m *optimize.Model, c []float64, nd node) (float64, []float64, optimize.Status, error) {
	sf, ok := newStandardForm(m, c, nd)
	if !ok {
		return 0, nil, optimize.StatusInfeasible, nil
	}
	if len(sf.a) == 0 {
		// Without rows every variable has an infinite upper bound.
		for _, cj := range sf.c {
			if cj < -s.cfg.Tolerance {
				return 0, nil, optimize.StatusUnbounded, nil
			}
		}
		x := sf.values(make([]float64, len(sf.c)))
		return floats.Dot(c, x), x, optimize.StatusOptimal, nil
	}

	_, y, err := lpSolve(sf.c, dense(sf.a, len(sf.c)), sf.b, s.cfg.Tolerance)
	switch {
	case err != nil:
		s.logger.Debugf("gonum relaxation of %s: %v, using tableau", m.Name, err)
	case !sf.feasible(y, feasibilityTol):
		s.logger.Debugf("gonum relaxation of %s violates its rows, using tableau", m.Name)
	default:
		x := sf.values(y)
		return floats.Dot(c, x), x, optimize.StatusOptimal, nil
	}

	_, y, err = solveTableau(sf.c, sf.a, sf.b, s.cfg.Tolerance)
	switch {
	case errors.Is(err, errTableauInfeasible):
		return 0, nil, optimize.StatusInfeasible, nil
	case errors.Is(err, errTableauUnbounded):
		return 0, nil, optimize.StatusUnbounded, nil
	case err != nil:
		return 0, nil, optimize.StatusNotSolved, fmt.Errorf("simplex relaxation of %s: %w", m.Name, err)
	}
	x := sf.values(y)
	return floats.Dot(c, x), x, optimize.StatusOptimal, nil
}

// settle turns an integral relaxation point into an incumbent. When rounding
// the binaries breaks a row, the continuous variables are solved again with
// the binaries fixed.
func (s *Solver) settle(m *optimize.Model, c, x []float64, f, tol float64) ([]float64, float64, bool, error) {
	cand := s.clean(m, x)
	if m.Satisfied(cand, tol) {
		return cand, f, true, nil
	}
	fixed := node{lower: make([]float64, len(x)), upper: make([]float64, len(x))}
	for i, v := range m.Variables {
		fixed.lower[i], fixed.upper[i] = v.Lower, v.Upper
		if v.Kind == optimize.Binary {
			fixed.lower[i], fixed.upper[i] = cand[i], cand[i]
		}
	}
	ff, fx, status, err := s.relax(m, c, fixed)
	if err != nil || status != optimize.StatusOptimal {
		s.logger.Warnf("simplex dropped an integral point of %s that does not hold after rounding", m.Name)
		return nil, 0, false, err
	}
	cand = s.clean(m, fx)
	if !m.Satisfied(cand, tol) {
		s.logger.Warnf("simplex dropped an integral point of %s that does not hold after rounding", m.Name)
		return nil, 0, false, nil
	}
	return cand, ff, true, nil
}

// rowScale is the largest absolute row sum of m, at least 1.
func rowScale(m *optimize.Model) float64 {
	scale := 1.0
	for _, con := range m.Constraints {
		var sum float64
		for _, t := range con.Terms {
			sum += math.Abs(t.Coef)
		}
		scale = math.Max(scale, sum+math.Abs(con.RHS))
	}
	return scale
}

func finiteBounds(m *optimize.Model) bool {
	for _, v := range m.Variables {
		if math.IsInf(v.Upper, 1) {
			return false
		}
	}
	return true
}

func emptyRowHolds(con optimize.Constraint) bool {
	switch con.Sense {
	case optimize.LE:
		return con.RHS >= -integralityTol
	case optimize.GE:
		return con.RHS <= integralityTol
	default:
		return math.Abs(con.RHS) <= integralityTol
	}
}

func dense(rows [][]float64, cols int) *mat.Dense {
	d := mat.NewDense(len(rows), cols, nil)
	for i, r := range rows {
		d.SetRow(i, r)
	}
	return d
}

// mostFractional returns the binary variable furthest from integrality, or
// -1 when every binary is integral.
func mostFractional(m *optimize.Model, x []float64) int {
	best, bestDist := -1, integralityTol
	for i, v := range m.Variables {
		if v.Kind != optimize.Binary {
			continue
		}
		frac := x[i] - math.Floor(x[i])
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// clean rounds binaries and clamps values into their bounds.
func (s *Solver) clean(m *optimize.Model, x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range m.Variables {
		val := x[i]
		if v.Kind == optimize.Binary {
			val = math.Round(val)
		}
		out[i] = math.Max(v.Lower, math.Min(v.Upper, val))
	}
	return out
}
