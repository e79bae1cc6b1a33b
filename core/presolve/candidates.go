package presolve

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/bmu-balancer/core/logger"
	"github.com/kilianp07/bmu-balancer/core/lookup"
	"github.com/kilianp07/bmu-balancer/core/model"
)

// Candidate is one feasible way of using an asset to serve a request: a
// power level held over a window. Nil adjusted bounds fall back to the
// request's own start and end.
type Candidate struct {
	Asset         model.Asset
	Request       model.DispatchRequest
	MW            int
	AdjustedStart *time.Time
	AdjustedEnd   *time.Time
}

// Start returns the first instant of delivery.
func (c Candidate) Start() time.Time { return orTime(c.AdjustedStart, c.Request.Start) }

// End returns the last instant of delivery.
func (c Candidate) End() time.Time { return orTime(c.AdjustedEnd, c.Request.End) }

// Hours returns the delivery length in hours.
func (c Candidate) Hours() float64 { return c.End().Sub(c.Start()).Hours() }

func (c Candidate) String() string {
	return fmt.Sprintf("%s@%dMW[%s,%s]", c.Asset, c.MW, c.Start().Format(time.RFC3339), c.End().Format(time.RFC3339))
}

// Generator builds candidates for every asset of a request's BMU.
type Generator struct {
	// Increment is the MW step between levels, DefaultIncrement when zero.
	Increment int
	// Workers bounds how many assets are processed concurrently. Values
	// below 2 run sequentially.
	Workers int
	Logger  logger.Logger
}

// NewGenerator returns a sequential generator with the default increment.
func NewGenerator(log logger.Logger) Generator {
	return Generator{Increment: DefaultIncrement, Logger: logger.OrNop(log)}
}

// Generate returns the candidates of req in BMU asset order. Ineligible
// assets contribute nothing. An ambiguous current instruction aborts the
// whole generation.
func (g Generator) Generate(ctx context.Context, req model.DispatchRequest, lk *lookup.Lookup, executionTime time.Time) ([]Candidate, error) {
	assets := req.Assets()
	perAsset := make([][]Candidate, len(assets))

	if g.Workers < 2 {
		for i, a := range assets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cands, err := g.forAsset(a, req, lk, executionTime)
			if err != nil {
				return nil, err
			}
			perAsset[i] = cands
		}
	} else {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.Workers)
		for i, a := range assets {
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				cands, err := g.forAsset(a, req, lk, executionTime)
				if err != nil {
					return err
				}
				perAsset[i] = cands
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	var out []Candidate
	for _, cands := range perAsset {
		out = append(out, cands...)
	}
	logger.OrNop(g.Logger).Infof("generated %d candidates for request %d over %d assets", len(out), req.ID, len(assets))
	return out, nil
}

func (g Generator) forAsset(asset model.Asset, req model.DispatchRequest, lk *lookup.Lookup, executionTime time.Time) ([]Candidate, error) {
	log := logger.OrNop(g.Logger)

	current, err := lk.CurrentInstruction(asset.ID, req.Start)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", asset, err)
	}
	prior := lk.PriorInstruction(asset.ID, req.Start)

	if !IsEligible(asset, req, lk.States(asset.ID), current, prior, log) {
		return nil, nil
	}

	start := AdjustedStart(asset, req, current, executionTime)
	end := AdjustedEnd(asset, req, current, start)
	if !orTime(end, req.End).After(orTime(start, req.Start)) {
		log.Warnf("%s has no usable delivery window for request %d", asset, req.ID)
		return nil, nil
	}

	options := MWOptions(asset, req, start, end, g.Increment)
	cands := make([]Candidate, 0, len(options))
	for _, mw := range options {
		if math.Abs(float64(mw)) > asset.Capacity {
			continue
		}
		cands = append(cands, Candidate{
			Asset:         asset,
			Request:       req,
			MW:            mw,
			AdjustedStart: start,
			AdjustedEnd:   end,
		})
	}
	log.Debugw("asset candidates", map[string]any{
		"asset":   asset.ID,
		"options": options,
		"kept":    len(cands),
	})
	return cands, nil
}
