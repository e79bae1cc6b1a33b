// Package engine formulates dispatch candidates as a mixed integer program,
// hands it to a solver and extracts the resulting instructions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/bmu-balancer/core/logger"
	"github.com/kilianp07/bmu-balancer/core/model"
	"github.com/kilianp07/bmu-balancer/core/optimize"
	"github.com/kilianp07/bmu-balancer/core/presolve"
)

// Stats describes the size and cost of one solve.
type Stats struct {
	Candidates  int
	Variables   int
	Constraints int
	Nodes       int
	Elapsed     time.Duration
}

// Engine builds and solves models with a fixed solver and configuration.
type Engine struct {
	solver optimize.Solver
	cfg    Config
	logger logger.Logger
}

// New returns an engine. cfg receives defaults and is validated.
func New(solver optimize.Solver, cfg Config, log logger.Logger) (*Engine, error) {
	if solver == nil {
		return nil, errors.New("engine: nil solver")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{solver: solver, cfg: cfg, logger: logger.OrNop(log)}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Run solves req over cands. Infeasible and unsolved models are reported in
// the Solution status. A solve cut short by a deadline is reported as not
// solved; other solver failures are returned as errors.
func (e *Engine) Run(ctx context.Context, req model.DispatchRequest, cands []presolve.Candidate) (Solution, Stats, error) {
	start := time.Now()
	stats := Stats{Candidates: len(cands)}

	p, err := Build(req, cands, e.cfg)
	if err != nil {
		return Solution{}, stats, fmt.Errorf("build model: %w", err)
	}
	stats.Variables = len(p.Model.Variables)
	stats.Constraints = len(p.Model.Constraints)
	e.logger.Debugw("model built", map[string]any{
		"request":     req.ID,
		"formulation": string(p.Formulation),
		"candidates":  stats.Candidates,
		"variables":   stats.Variables,
		"constraints": stats.Constraints,
	})

	res, err := e.solver.Solve(ctx, p.Model)
	stats.Nodes = res.Nodes
	stats.Elapsed = time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.logger.Warnf("solve of request %d timed out after %s", req.ID, stats.Elapsed)
			return Solution{Status: optimize.StatusNotSolved}, stats, nil
		}
		return Solution{}, stats, fmt.Errorf("solve request %d: %w", req.ID, err)
	}

	sol := Extract(p, res, e.cfg)
	e.logger.Infof("finished solving request %d, got status %s in %s", req.ID, sol.Status, stats.Elapsed.Round(time.Millisecond))
	return sol, stats, nil
}
