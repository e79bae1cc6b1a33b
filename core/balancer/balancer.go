// Package balancer runs the full pipeline for one dispatch request:
// candidate generation, model construction, solve and extraction.
package balancer

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/bmu-balancer/core/engine"
	"github.com/kilianp07/bmu-balancer/core/logger"
	"github.com/kilianp07/bmu-balancer/core/lookup"
	"github.com/kilianp07/bmu-balancer/core/model"
	"github.com/kilianp07/bmu-balancer/core/presolve"
)

// Result is the outcome of balancing one request.
type Result struct {
	Request    model.DispatchRequest
	Candidates []presolve.Candidate
	Solution   engine.Solution
	Stats      engine.Stats
}

// Balancer balances requests with a fixed generator and engine.
type Balancer struct {
	generator presolve.Generator
	engine    *engine.Engine
	logger    logger.Logger
}

// New returns a Balancer.
func New(gen presolve.Generator, eng *engine.Engine, log logger.Logger) (*Balancer, error) {
	if eng == nil {
		return nil, errors.New("balancer: nil engine")
	}
	log = logger.OrNop(log)
	if gen.Logger == nil {
		gen.Logger = log
	}
	return &Balancer{generator: gen, engine: eng, logger: log}, nil
}

// Balance solves data.Request against the reference data in data. The
// lookup index is built for this call only.
func (b *Balancer) Balance(ctx context.Context, data model.InputData) (Result, error) {
	req := data.Request
	res := Result{Request: req}

	lk := lookup.FromInput(data)
	cands, err := b.generator.Generate(ctx, req, lk, data.Parameters.ExecutionTime)
	if err != nil {
		return res, fmt.Errorf("generate candidates for request %d: %w", req.ID, err)
	}
	res.Candidates = cands

	sol, stats, err := b.engine.Run(ctx, req, cands)
	if err != nil {
		return res, err
	}
	res.Solution, res.Stats = sol, stats
	b.logger.Infof("balanced request %d on %s: status=%s instructions=%d total=%gMW",
		req.ID, req.BMU, sol.Status, len(sol.Instructions), sol.TotalMW())
	return res, nil
}
