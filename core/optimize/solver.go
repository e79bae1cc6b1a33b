package optimize

import (
	"context"

	"github.com/kilianp07/bmu-balancer/core/factory"
)

// Status is the outcome reported by a solver.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusNotSolved  Status = "not-solved"
)

// Result is the answer of a solver. Objective and Values are only
// meaningful when Status is StatusOptimal.
type Result struct {
	Status    Status
	Objective float64
	Values    []float64
	// Nodes is the number of subproblems explored, when the solver reports it.
	Nodes int
}

// Solver answers a model. Infeasible or unbounded models are reported
// through Result.Status; errors are reserved for malformed models and
// solver failures.
type Solver interface {
	Solve(ctx context.Context, m *Model) (Result, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, m *Model) (Result, error)

// Solve implements Solver.
func (f SolverFunc) Solve(ctx context.Context, m *Model) (Result, error) { return f(ctx, m) }

var solverRegistry = factory.NewRegistry[Solver]()

// RegisterSolver adds a solver factory identified by name.
func RegisterSolver(name string, f factory.Factory[Solver]) error {
	return solverRegistry.Register(name, f)
}

// NewSolver creates the solver described by cfg.
func NewSolver(cfg factory.ModuleConfig) (Solver, error) {
	return solverRegistry.Create(cfg)
}

// Solvers lists the registered solver names.
func Solvers() []string {
	return solverRegistry.Names()
}
