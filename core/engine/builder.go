package engine

import (
	"errors"
	"fmt"

	"github.com/kilianp07/bmu-balancer/core/model"
	"github.com/kilianp07/bmu-balancer/core/optimize"
	"github.com/kilianp07/bmu-balancer/core/presolve"
)

// ErrTooManyAssignments is returned when the assignment formulation would
// need more combinations than Config.MaxAssignments.
var ErrTooManyAssignments = errors.New("engine: too many assignments")

// Problem is a built model together with the mapping from its selection
// variables back to candidates.
type Problem struct {
	Model       *optimize.Model
	Formulation Formulation
	Request     model.DispatchRequest
	Candidates  []presolve.Candidate
	// Selections maps each selection variable to the candidates it
	// activates. Variables not listed are auxiliaries.
	Selections map[int][]int
	// IdealArea is the energy of the request profile in MWh.
	IdealArea float64
}

// Build turns the candidates of req into a maximisation model.
func Build(req model.DispatchRequest, cands []presolve.Candidate, cfg Config) (*Problem, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ideal, err := requestProfile(req)
	if err != nil {
		return nil, fmt.Errorf("request %d profile: %w", req.ID, err)
	}
	p := &Problem{
		Model:       optimize.NewModel(fmt.Sprintf("bmu-balancer-request-%d", req.ID), optimize.Maximize),
		Formulation: cfg.Formulation,
		Request:     req,
		Candidates:  cands,
		Selections:  make(map[int][]int),
		IdealArea:   ideal.area(),
	}
	switch cfg.Formulation {
	case FormulationAssignment:
		err = buildAssignments(p, ideal, cfg)
	default:
		err = buildCandidates(p, cfg)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// buildCandidates adds one binary per candidate. The imbalance is priced on
// the net energy mismatch through the over and under auxiliaries.
func buildCandidates(p *Problem, cfg Config) error {
	m := p.Model
	balance := make([]optimize.Term, 0, len(p.Candidates)+2)
	for i, c := range p.Candidates {
		v := m.AddBinary(fmt.Sprintf("x[asset=%d,mw=%d]", c.Asset.ID, c.MW))
		p.Selections[v] = []int{i}

		val, err := CandidateValue(c)
		if err != nil {
			return err
		}
		m.AddObjective(v, val.Net())

		prof, err := candidateProfile(c)
		if err != nil {
			return fmt.Errorf("candidate %s: %w", c, err)
		}
		balance = append(balance, optimize.Term{Var: v, Coef: prof.area()})
	}

	over := m.AddContinuous("over", 0, inf)
	under := m.AddContinuous("under", 0, inf)
	m.AddObjective(over, -cfg.OverWeight)
	m.AddObjective(under, -cfg.UnderWeight)
	balance = append(balance, optimize.Term{Var: over, Coef: -1}, optimize.Term{Var: under, Coef: 1})
	m.AddConstraint("imbalance", balance, optimize.EQ, p.IdealArea)

	addMinProfit(p)
	addSingleAssignment(p)
	addVolume(p)
	return nil
}

// buildAssignments adds one binary per combination of per-asset candidates
// and prices each combination's exact imbalance in the objective.
func buildAssignments(p *Problem, ideal trapezoid, cfg Config) error {
	groups := groupByAsset(p.Candidates)
	count := 1
	for _, g := range groups {
		if count > cfg.MaxAssignments/len(g.candidates) {
			return fmt.Errorf("request %d: more than %d combinations: %w", p.Request.ID, cfg.MaxAssignments, ErrTooManyAssignments)
		}
		count *= len(g.candidates)
	}

	profiles := make([]trapezoid, len(p.Candidates))
	values := make([]float64, len(p.Candidates))
	for i, c := range p.Candidates {
		prof, err := candidateProfile(c)
		if err != nil {
			return fmt.Errorf("candidate %s: %w", c, err)
		}
		val, err := CandidateValue(c)
		if err != nil {
			return err
		}
		profiles[i], values[i] = prof, val.Net()
	}

	m := p.Model
	all := make([]optimize.Term, 0, count)
	for n := 0; n < count; n++ {
		selected := make([]int, len(groups))
		delivered := make([]trapezoid, len(groups))
		net := 0.0
		rem := n
		for gi := len(groups) - 1; gi >= 0; gi-- {
			g := groups[gi]
			ci := g.candidates[rem%len(g.candidates)]
			rem /= len(g.candidates)
			selected[gi], delivered[gi] = ci, profiles[ci]
			net += values[ci]
		}
		over, under := mismatch(ideal, delivered)

		v := m.AddBinary(fmt.Sprintf("a[%d]", n))
		p.Selections[v] = selected
		m.AddObjective(v, net-cfg.OverWeight*over-cfg.UnderWeight*under)
		all = append(all, optimize.Term{Var: v, Coef: 1})
	}
	m.AddConstraint("one-assignment", all, optimize.EQ, 1)

	addMinProfit(p)
	addVolume(p)
	return nil
}

type assetGroup struct {
	assetID    int
	candidates []int
}

// groupByAsset groups candidate indexes by asset in first seen order.
func groupByAsset(cands []presolve.Candidate) []assetGroup {
	var groups []assetGroup
	pos := make(map[int]int)
	for i, c := range cands {
		gi, ok := pos[c.Asset.ID]
		if !ok {
			gi = len(groups)
			pos[c.Asset.ID] = gi
			groups = append(groups, assetGroup{assetID: c.Asset.ID})
		}
		groups[gi].candidates = append(groups[gi].candidates, i)
	}
	return groups
}
