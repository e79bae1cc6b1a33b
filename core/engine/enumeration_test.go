package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bmu-balancer/core/model"
	"github.com/kilianp07/bmu-balancer/core/optimize"
	"github.com/kilianp07/bmu-balancer/core/presolve"
)

// randomRequest draws a request over 2 to 4 assets with five levels each,
// zero included.
func randomRequest(rng *rand.Rand) (model.DispatchRequest, []presolve.Candidate) {
	sign := 1.0
	if rng.IntN(4) == 0 {
		sign = -1
	}
	n := 2 + rng.IntN(3)
	specs := make([]assetSpec, n)
	for i := range specs {
		r := float64(1 + rng.IntN(20))
		specs[i] = assetSpec{
			name:      fmt.Sprintf("asset-%d", i+1),
			minProfit: float64(rng.IntN(200)),
			running:   float64(rng.IntN(20)),
			capacity:  float64(20 + rng.IntN(41)),
			rate:      model.Rate{RampUpImport: r, RampUpExport: r, RampDownImport: r, RampDownExport: r},
		}
	}
	assets := buildAssets(specs)
	price := 5 + 45*rng.Float64()
	if sign < 0 && rng.IntN(2) == 0 {
		price = -price
	}
	reqRate := float64(1 + rng.IntN(20))
	req := request(price, sign*float64(10+rng.IntN(91)),
		model.Rate{RampUpImport: reqRate, RampUpExport: reqRate, RampDownImport: reqRate, RampDownExport: reqRate},
		assets...)

	var cands []presolve.Candidate
	for _, a := range assets {
		cands = append(cands, presolve.Candidate{Asset: a, Request: req, MW: 0})
		for _, mw := range rng.Perm(int(a.Capacity)/5)[:4] {
			cands = append(cands, presolve.Candidate{Asset: a, Request: req, MW: int(sign) * 5 * (mw + 1)})
		}
	}
	return req, cands
}

// bestByEnumeration scores every one-level-per-asset selection the way
// cfg.Formulation prices it and returns the best objective, or false when no
// selection is feasible. The candidate formulation nets energy areas; the
// assignment formulation integrates the exact mismatch.
func bestByEnumeration(t *testing.T, req model.DispatchRequest, cands []presolve.Candidate, cfg Config) (float64, bool) {
	t.Helper()
	cfg.SetDefaults()
	ideal, err := requestProfile(req)
	require.NoError(t, err)
	groups := groupByAsset(cands)

	best, found := math.Inf(-1), false
	delivered := make([]trapezoid, len(groups))
	var walk func(gi int, net, area float64, mw int)
	walk = func(gi int, net, area float64, mw int) {
		if gi == len(groups) {
			if req.IsImport() && float64(mw) < req.MW || !req.IsImport() && float64(mw) > req.MW {
				return
			}
			over, under := math.Max(0, area-ideal.area()), math.Max(0, ideal.area()-area)
			if cfg.Formulation == FormulationAssignment {
				over, under = mismatch(ideal, delivered)
			}
			best, found = math.Max(best, net-cfg.OverWeight*over-cfg.UnderWeight*under), true
			return
		}
		for _, ci := range groups[gi].candidates {
			c := cands[ci]
			if c.MW != 0 && profitMargin(c) < 0 {
				continue
			}
			val, err := CandidateValue(c)
			require.NoError(t, err)
			prof, err := candidateProfile(c)
			require.NoError(t, err)
			delivered[gi] = prof
			walk(gi+1, net+val.Net(), area+prof.area(), mw+c.MW)
		}
	}
	walk(0, 0, 0, 0)
	return best, found
}

func TestRunMatchesEnumeration(t *testing.T) {
	for _, f := range []Formulation{FormulationCandidate, FormulationAssignment} {
		for seed := uint64(1); seed <= 40; seed++ {
			t.Run(fmt.Sprintf("%s/seed-%d", f, seed), func(t *testing.T) {
				rng := rand.New(rand.NewPCG(seed, 7))
				req, cands := randomRequest(rng)
				cfg := Config{Formulation: f}
				want, ok := bestByEnumeration(t, req, cands, cfg)
				require.True(t, ok, "the all-zero selection is always feasible")

				sol, _, err := newEngine(t, cfg).Run(context.Background(), req, cands)
				require.NoError(t, err)
				require.Equal(t, optimize.StatusOptimal, sol.Status)
				require.NotNil(t, sol.Objective)
				assert.InDelta(t, want, *sol.Objective, 1e-6*(1+math.Abs(want)))
				assert.Len(t, sol.Instructions, len(groupByAsset(cands)))
				assertInvariants(t, req, sol)
			})
		}
	}
}
