package engine

import (
	"github.com/kilianp07/bmu-balancer/core/model"
	"github.com/kilianp07/bmu-balancer/core/optimize"
)

// selectedThreshold separates selected from unselected binaries.
const selectedThreshold = 0.5

// Solution is the outcome of one solve. Objective is nil and Instructions
// empty unless Status is optimal.
type Solution struct {
	Status       optimize.Status
	Objective    *float64
	Instructions []model.Instruction
}

// Optimal reports whether the solve produced instructions.
func (s Solution) Optimal() bool { return s.Status == optimize.StatusOptimal }

// TotalMW returns the signed sum of instructed power.
func (s Solution) TotalMW() float64 {
	var total float64
	for _, in := range s.Instructions {
		total += in.MW
	}
	return total
}

// Extract turns a solver result into instructions, one per selected
// candidate, in asset order.
func Extract(p *Problem, res optimize.Result, cfg Config) Solution {
	if res.Status != optimize.StatusOptimal {
		return Solution{Status: res.Status}
	}
	objective := res.Objective
	sol := Solution{Status: res.Status, Objective: &objective, Instructions: []model.Instruction{}}
	for _, v := range p.selectionVars() {
		if v >= len(res.Values) || res.Values[v] <= selectedThreshold {
			continue
		}
		for _, ci := range p.Selections[v] {
			c := p.Candidates[ci]
			if cfg.DropIdle && c.MW == 0 {
				continue
			}
			sol.Instructions = append(sol.Instructions, model.Instruction{
				ID:        len(sol.Instructions) + 1,
				AssetID:   c.Asset.ID,
				MW:        float64(c.MW),
				Start:     c.Start(),
				End:       c.End(),
				RequestID: c.Request.ID,
			})
		}
	}
	return sol
}
