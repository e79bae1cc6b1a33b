// Package optimize describes mixed integer linear programs independently of
// the solver used to answer them.
package optimize

import (
	"errors"
	"fmt"
	"math"
)

// Kind is the domain of a decision variable.
type Kind int

const (
	Continuous Kind = iota
	Binary
)

// Sense is the relation between a constraint row and its right hand side.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "=="
	}
}

// Direction selects whether the objective is maximised or minimised.
type Direction int

const (
	Maximize Direction = iota
	Minimize
)

// Variable is a decision variable bounded to [Lower, Upper]. Binary
// variables are always bounded to [0, 1].
type Variable struct {
	Name  string
	Kind  Kind
	Lower float64
	Upper float64
}

// Term is a coefficient applied to the variable at index Var.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is a linear row: Σ terms <sense> RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a linear objective over variables subject to linear rows.
type Model struct {
	Name        string
	Direction   Direction
	Variables   []Variable
	Objective   []Term
	Offset      float64
	Constraints []Constraint
}

// ErrInvalidModel is returned by Validate for malformed models.
var ErrInvalidModel = errors.New("optimize: invalid model")

// NewModel returns an empty model.
func NewModel(name string, dir Direction) *Model {
	return &Model{Name: name, Direction: dir}
}

// AddBinary adds a 0/1 variable and returns its index.
func (m *Model) AddBinary(name string) int {
	m.Variables = append(m.Variables, Variable{Name: name, Kind: Binary, Lower: 0, Upper: 1})
	return len(m.Variables) - 1
}

// AddContinuous adds a continuous variable bounded to [lower, upper]. Use
// math.Inf(1) for an unbounded upper side.
func (m *Model) AddContinuous(name string, lower, upper float64) int {
	m.Variables = append(m.Variables, Variable{Name: name, Kind: Continuous, Lower: lower, Upper: upper})
	return len(m.Variables) - 1
}

// AddObjective adds coef*x[v] to the objective.
func (m *Model) AddObjective(v int, coef float64) {
	if coef == 0 {
		return
	}
	m.Objective = append(m.Objective, Term{Var: v, Coef: coef})
}

// AddConstraint appends a row. Terms with a zero coefficient are dropped;
// rows without terms are kept so Validate can detect trivially
// infeasible ones.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	kept := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: kept, Sense: sense, RHS: rhs})
}

// Validate checks variable references, bounds and empty rows.
func (m *Model) Validate() error {
	for i, v := range m.Variables {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || v.Lower > v.Upper {
			return fmt.Errorf("variable %d %q bounds [%v,%v]: %w", i, v.Name, v.Lower, v.Upper, ErrInvalidModel)
		}
		if math.IsInf(v.Lower, 0) {
			return fmt.Errorf("variable %d %q has no lower bound: %w", i, v.Name, ErrInvalidModel)
		}
	}
	check := func(where string, terms []Term) error {
		for _, t := range terms {
			if t.Var < 0 || t.Var >= len(m.Variables) {
				return fmt.Errorf("%s references variable %d: %w", where, t.Var, ErrInvalidModel)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("%s coefficient %v: %w", where, t.Coef, ErrInvalidModel)
			}
		}
		return nil
	}
	if err := check("objective", m.Objective); err != nil {
		return err
	}
	for _, c := range m.Constraints {
		if err := check("constraint "+c.Name, c.Terms); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate returns the objective value of the given assignment.
func (m *Model) Evaluate(values []float64) float64 {
	return m.Offset + dot(m.Objective, values)
}

// Satisfied reports whether values meet every row and bound within tol.
func (m *Model) Satisfied(values []float64, tol float64) bool {
	if len(values) != len(m.Variables) {
		return false
	}
	for i, v := range m.Variables {
		if values[i] < v.Lower-tol || values[i] > v.Upper+tol {
			return false
		}
	}
	for _, c := range m.Constraints {
		lhs := dot(c.Terms, values)
		switch c.Sense {
		case LE:
			if lhs > c.RHS+tol {
				return false
			}
		case GE:
			if lhs < c.RHS-tol {
				return false
			}
		case EQ:
			if math.Abs(lhs-c.RHS) > tol {
				return false
			}
		}
	}
	return true
}

func dot(terms []Term, values []float64) float64 {
	var s float64
	for _, t := range terms {
		s += t.Coef * values[t.Var]
	}
	return s
}
