package balancer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bmu-balancer/core/engine"
	"github.com/kilianp07/bmu-balancer/core/lookup"
	"github.com/kilianp07/bmu-balancer/core/model"
	"github.com/kilianp07/bmu-balancer/core/optimize"
	"github.com/kilianp07/bmu-balancer/core/presolve"
	"github.com/kilianp07/bmu-balancer/infra/solver/simplex"
)

var (
	execTime = time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	start    = time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
	end      = start.Add(3 * time.Hour)
	fast     = model.Rate{RampUpImport: 10, RampUpExport: 10, RampDownImport: 10, RampDownExport: 10}
)

func inputData() model.InputData {
	assets := []model.Asset{
		{ID: 1, Name: "battery", Capacity: 100, MinRequiredProfit: 1, Rates: []model.Rate{fast}},
		{ID: 2, Name: "chp", Capacity: 100, MinRequiredProfit: 1, Rates: []model.Rate{fast}},
	}
	bmu := model.BMU{ID: 1, Name: "north", Assets: assets}
	return model.InputData{
		Parameters: model.Parameters{ExecutionTime: execTime},
		Assets:     assets,
		BMUs:       []model.BMU{bmu},
		States: []model.AssetState{
			{ID: 1, AssetID: 1, Start: start.Add(-time.Hour), End: end.Add(time.Hour), Available: true},
			{ID: 2, AssetID: 2, Start: start.Add(-time.Hour), End: end.Add(time.Hour), Available: false},
		},
		Request: model.DispatchRequest{
			ID: 5, BMU: bmu, Start: start, End: end, MW: 20, PricePerMWh: 10, Rates: []model.Rate{fast},
		},
	}
}

func newBalancer(t *testing.T, cfg engine.Config, workers int) *Balancer {
	t.Helper()
	eng, err := engine.New(simplex.New(simplex.Config{}, nil), cfg, nil)
	require.NoError(t, err)
	gen := presolve.Generator{Increment: 10, Workers: workers}
	b, err := New(gen, eng, nil)
	require.NoError(t, err)
	return b
}

func TestBalance(t *testing.T) {
	for _, workers := range []int{0, 4} {
		res, err := newBalancer(t, engine.Config{}, workers).Balance(context.Background(), inputData())
		require.NoError(t, err)
		require.Equal(t, optimize.StatusOptimal, res.Solution.Status)
		assert.Len(t, res.Candidates, 3)
		require.Len(t, res.Solution.Instructions, 1)
		in := res.Solution.Instructions[0]
		assert.Equal(t, 1, in.AssetID)
		assert.Equal(t, 20.0, in.MW)
		assert.Equal(t, 5, in.RequestID)
		assert.True(t, in.Start.Equal(start))
		assert.True(t, in.End.Equal(end))
		assert.Equal(t, 3, res.Stats.Candidates)
	}
}

func fleetData(n int) model.InputData {
	data := inputData()
	data.Assets, data.States = nil, nil
	for i := 1; i <= n; i++ {
		data.Assets = append(data.Assets, model.Asset{
			ID: i, Name: fmt.Sprintf("unit-%d", i), Capacity: 40, MinRequiredProfit: 1, Rates: []model.Rate{fast},
		})
		data.States = append(data.States, model.AssetState{
			ID: i, AssetID: i, Start: start.Add(-time.Hour), End: end.Add(time.Hour), Available: true,
		})
	}
	data.BMUs[0].Assets = data.Assets
	data.Request.BMU = data.BMUs[0]
	data.Request.MW = 60
	data.Request.PricePerMWh = 30
	return data
}

func TestBalanceFleet(t *testing.T) {
	for n := 2; n <= 6; n++ {
		for _, workers := range []int{0, 4} {
			t.Run(fmt.Sprintf("assets-%d/workers-%d", n, workers), func(t *testing.T) {
				eng, err := engine.New(simplex.New(simplex.Config{}, nil), engine.Config{}, nil)
				require.NoError(t, err)
				gen := presolve.NewGenerator(nil)
				gen.Workers = workers
				b, err := New(gen, eng, nil)
				require.NoError(t, err)

				data := fleetData(n)
				res, err := b.Balance(context.Background(), data)
				require.NoError(t, err)
				require.Equal(t, optimize.StatusOptimal, res.Solution.Status)
				require.Len(t, res.Solution.Instructions, n)

				seen := map[int]bool{}
				var total float64
				for _, in := range res.Solution.Instructions {
					assert.False(t, seen[in.AssetID], "asset %d instructed twice", in.AssetID)
					seen[in.AssetID] = true
					assert.GreaterOrEqual(t, in.MW, 0.0)
					assert.LessOrEqual(t, in.MW, 40.0)
					if in.MW != 0 {
						profit := data.Request.PricePerMWh * in.Hours() * in.MW
						assert.GreaterOrEqual(t, profit, 1.0)
					}
					total += in.MW
				}
				assert.Positive(t, total)
				assert.LessOrEqual(t, total, data.Request.MW)
			})
		}
	}
}

func TestBalanceAssignmentFormulation(t *testing.T) {
	res, err := newBalancer(t, engine.Config{Formulation: engine.FormulationAssignment}, 0).Balance(context.Background(), inputData())
	require.NoError(t, err)
	require.Len(t, res.Solution.Instructions, 1)
	assert.Equal(t, 20.0, res.Solution.Instructions[0].MW)
}

func TestBalanceRespectsNotice(t *testing.T) {
	data := inputData()
	data.Assets[0].NoticeToDeviateFromZero = 120
	data.Request.BMU.Assets = data.Assets

	res, err := newBalancer(t, engine.Config{}, 0).Balance(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, res.Solution.Instructions, 1)
	in := res.Solution.Instructions[0]
	assert.True(t, in.Start.Equal(execTime.Add(2*time.Hour)), "start %s", in.Start)
	assert.True(t, in.End.Equal(end))
}

func TestBalanceAmbiguousHistory(t *testing.T) {
	data := inputData()
	data.Instructions = []model.Instruction{
		{ID: 1, AssetID: 1, MW: 10, Start: start.Add(-time.Hour), End: start.Add(time.Hour)},
		{ID: 2, AssetID: 1, MW: 5, Start: start.Add(-time.Minute), End: start.Add(time.Hour)},
	}
	_, err := newBalancer(t, engine.Config{}, 0).Balance(context.Background(), data)
	assert.True(t, errors.Is(err, lookup.ErrAmbiguous), "got %v", err)
}

func TestBalanceNilEngine(t *testing.T) {
	_, err := New(presolve.Generator{}, nil, nil)
	assert.Error(t, err)
}
