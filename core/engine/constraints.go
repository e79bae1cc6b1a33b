package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/bmu-balancer/core/optimize"
)

var inf = math.Inf(1)

// selectionVars returns the selection variables in ascending order.
func (p *Problem) selectionVars() []int {
	vars := make([]int, 0, len(p.Selections))
	for v := range p.Selections {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	return vars
}

// addMinProfit requires every selected nonzero candidate to earn its asset's
// minimum profit: (price*hours*mw - minProfit) * x >= 0.
func addMinProfit(p *Problem) {
	for _, v := range p.selectionVars() {
		for _, ci := range p.Selections[v] {
			c := p.Candidates[ci]
			if c.MW == 0 {
				continue
			}
			margin := profitMargin(c)
			if margin == 0 {
				continue
			}
			p.Model.AddConstraint(
				fmt.Sprintf("min-profit[var=%d,asset=%d,mw=%d]", v, c.Asset.ID, c.MW),
				[]optimize.Term{{Var: v, Coef: margin}},
				optimize.GE, 0,
			)
		}
	}
}

// addSingleAssignment selects exactly one level per asset.
func addSingleAssignment(p *Problem) {
	byAsset := make(map[int][]optimize.Term)
	var order []int
	for _, v := range p.selectionVars() {
		for _, ci := range p.Selections[v] {
			id := p.Candidates[ci].Asset.ID
			if _, ok := byAsset[id]; !ok {
				order = append(order, id)
			}
			byAsset[id] = append(byAsset[id], optimize.Term{Var: v, Coef: 1})
		}
	}
	for _, id := range order {
		p.Model.AddConstraint(fmt.Sprintf("single-assignment[asset=%d]", id), byAsset[id], optimize.EQ, 1)
	}
}

// addVolume keeps the selected power within the requested volume: at most
// MW for exports, at least MW for imports.
func addVolume(p *Problem) {
	var terms []optimize.Term
	for _, v := range p.selectionVars() {
		total := 0
		for _, ci := range p.Selections[v] {
			total += p.Candidates[ci].MW
		}
		if total != 0 {
			terms = append(terms, optimize.Term{Var: v, Coef: float64(total)})
		}
	}
	if len(terms) == 0 {
		return
	}
	sense := optimize.LE
	if p.Request.IsImport() {
		sense = optimize.GE
	}
	p.Model.AddConstraint("volume", terms, sense, p.Request.MW)
}
