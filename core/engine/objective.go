package engine

import (
	"fmt"
	"math"

	"github.com/kilianp07/bmu-balancer/core/presolve"
	"github.com/kilianp07/bmu-balancer/core/ramp"
)

// Value is the commercial breakdown of one candidate.
type Value struct {
	Revenue     float64
	RunningCost float64
	RampCost    float64
}

// Net returns revenue minus costs.
func (v Value) Net() float64 { return v.Revenue - v.RunningCost - v.RampCost }

// CandidateValue prices a candidate: revenue at the request price, running
// cost on the delivered energy and the ramp cost of reaching its level.
func CandidateValue(c presolve.Candidate) (Value, error) {
	mw := float64(c.MW)
	hours := c.Hours()
	rampCost, err := ramp.Cost(c.Asset, mw)
	if err != nil {
		return Value{}, fmt.Errorf("candidate %s: %w", c, err)
	}
	return Value{
		Revenue:     c.Request.PricePerMWh * hours * mw,
		RunningCost: c.Asset.RunningCostPerMWh * hours * math.Abs(mw),
		RampCost:    rampCost,
	}, nil
}

// profitMargin is the left hand side of the minimum profit row of a
// selected candidate: revenue minus the asset's required profit.
func profitMargin(c presolve.Candidate) float64 {
	return c.Request.PricePerMWh*c.Hours()*float64(c.MW) - c.Asset.MinRequiredProfit
}
