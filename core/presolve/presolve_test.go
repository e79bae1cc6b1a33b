package presolve

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/kilianp07/bmu-balancer/core/lookup"
	"github.com/kilianp07/bmu-balancer/core/model"
)

var (
	execTime = time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	reqStart = time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
	reqEnd   = reqStart.Add(3 * time.Hour)
)

func fptr(f float64) *float64 { return &f }

func tptr(t time.Time) *time.Time { return &t }

func testAsset(id int) model.Asset {
	return model.Asset{
		ID:       id,
		Name:     "asset",
		Capacity: 100,
		Rates:    []model.Rate{{AssetID: id, RampUpImport: 1, RampUpExport: 1, RampDownImport: 1, RampDownExport: 1}},
	}
}

func testRequest(mw float64, assets ...model.Asset) model.DispatchRequest {
	return model.DispatchRequest{
		ID:          7,
		BMU:         model.BMU{ID: 1, Assets: assets},
		Start:       reqStart,
		End:         reqEnd,
		MW:          mw,
		PricePerMWh: 10,
		Rates:       []model.Rate{{RampUpImport: 10, RampUpExport: 10, RampDownImport: 10, RampDownExport: 10}},
	}
}

func availableState(assetID int) model.AssetState {
	return model.AssetState{ID: assetID, AssetID: assetID, Start: reqStart.Add(-time.Hour), End: reqEnd.Add(time.Hour), Available: true}
}

func TestIsEligible(t *testing.T) {
	asset := testAsset(1)
	asset.MinZeroTime = 10
	asset.MinNonZeroTime = 60
	covering := []model.AssetState{availableState(1)}

	tests := []struct {
		name    string
		req     model.DispatchRequest
		states  []model.AssetState
		current *model.Instruction
		prior   *model.Instruction
		want    bool
	}{
		{"available no history", testRequest(10), covering, nil, nil, true},
		{"no states", testRequest(10), nil, nil, nil, false},
		{"unavailable state", testRequest(10), []model.AssetState{
			availableState(1),
			{AssetID: 1, Start: reqStart.Add(time.Hour), End: reqStart.Add(2 * time.Hour), Available: false},
		}, nil, nil, false},
		{"states leave a gap", testRequest(10), []model.AssetState{
			{AssetID: 1, Start: reqStart, End: reqStart.Add(time.Hour), Available: true},
			{AssetID: 1, Start: reqStart.Add(2 * time.Hour), End: reqEnd, Available: true},
		}, nil, nil, false},
		{"prior ended too recently", testRequest(10), covering, nil,
			&model.Instruction{Start: reqStart.Add(-time.Hour), End: reqStart.Add(-5 * time.Minute)}, false},
		{"prior ended long ago", testRequest(10), covering, nil,
			&model.Instruction{Start: reqStart.Add(-2 * time.Hour), End: reqStart.Add(-time.Hour)}, true},
		{"running asset skips zero time", testRequest(10), covering,
			&model.Instruction{Start: reqStart.Add(-time.Minute), End: reqStart.Add(time.Hour)},
			&model.Instruction{Start: reqStart.Add(-time.Hour), End: reqStart.Add(-5 * time.Minute)}, true},
		{"window shorter than min non-zero", func() model.DispatchRequest {
			r := testRequest(10)
			r.End = r.Start.Add(30 * time.Minute)
			return r
		}(), covering, nil, nil, false},
		{"current start extends window", func() model.DispatchRequest {
			r := testRequest(10)
			r.End = r.Start.Add(30 * time.Minute)
			return r
		}(), covering, &model.Instruction{Start: reqStart.Add(-time.Hour), End: reqStart.Add(time.Minute)}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEligible(asset, tt.req, tt.states, tt.current, tt.prior, nil); got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestAdjustedStart(t *testing.T) {
	running := &model.Instruction{Start: reqStart.Add(-time.Hour), End: reqEnd}
	tests := []struct {
		name      string
		bid, zero float64
		current   *model.Instruction
		want      *time.Time
	}{
		{"enough notice", 30, 30, nil, nil},
		{"running and bid notice too long", 90, 0, running, tptr(execTime.Add(90 * time.Minute))},
		{"running ignores zero notice", 30, 120, running, nil},
		{"off and zero notice too long", 30, 120, nil, tptr(execTime.Add(120 * time.Minute))},
		{"off and bid notice too long", 90, 70, nil, tptr(execTime.Add(90 * time.Minute))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAsset(1)
			a.NoticeToDeliverBid = tt.bid
			a.NoticeToDeviateFromZero = tt.zero
			got := AdjustedStart(a, testRequest(10, a), tt.current, execTime)
			if (got == nil) != (tt.want == nil) || (got != nil && !got.Equal(*tt.want)) {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestAdjustedEnd(t *testing.T) {
	running := &model.Instruction{Start: reqStart.Add(-time.Hour), End: reqEnd}
	late := tptr(reqStart.Add(30 * time.Minute))
	tests := []struct {
		name          string
		maxDelivery   *float64
		current       *model.Instruction
		adjustedStart *time.Time
		want          *time.Time
	}{
		{"unlimited", nil, nil, nil, nil},
		{"within max", fptr(180), nil, nil, nil},
		{"exceeds max", fptr(60), nil, nil, tptr(reqStart.Add(time.Hour))},
		{"exceeds max from adjusted start", fptr(60), nil, late, tptr(late.Add(time.Hour))},
		{"running within max", fptr(300), running, nil, nil},
		{"running exceeds max", fptr(120), running, nil, tptr(running.Start.Add(2 * time.Hour))},
		{"running exceeds max from adjusted start", fptr(120), running, late, tptr(late.Add(2 * time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAsset(1)
			a.MaxDeliveryPeriod = tt.maxDelivery
			got := AdjustedEnd(a, testRequest(10, a), tt.current, tt.adjustedStart)
			if (got == nil) != (tt.want == nil) || (got != nil && !got.Equal(*tt.want)) {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestMWOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Asset)
		mw     float64
		inc    int
		want   []int
	}{
		{"export default increment", nil, 30, 0, []int{0, 10, 20, 30}},
		{"export partial step", nil, 25, 10, []int{0, 10, 20}},
		{"import", nil, -20, 10, []int{-20, -10, 0}},
		{"capacity over hours", func(a *model.Asset) { a.Capacity = 45 }, 30, 5, []int{0, 5, 10, 15}},
		{"export rate limit", func(a *model.Asset) { a.MaxExportMWh = 12 }, 30, 5, []int{0, 5, 10}},
		{"import rate limit", func(a *model.Asset) { a.MaxImportMWh = 10 }, -30, 5, []int{-10, -5, 0}},
		{"export rate limit ignored for import", func(a *model.Asset) { a.MaxExportMWh = 5 }, -20, 10, []int{-20, -10, 0}},
		{"single export", func(a *model.Asset) { a.SingleExportMW = 7 }, 30, 10, []int{0, 7}},
		{"single import", func(a *model.Asset) { a.SingleImportMW = 7 }, -30, 10, []int{-7, 0}},
		{"single import ignored for export", func(a *model.Asset) { a.SingleImportMW = 7 }, 20, 10, []int{0, 10, 20}},
		{"zero request", nil, 0, 10, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAsset(1)
			if tt.mutate != nil {
				tt.mutate(&a)
			}
			got := MWOptions(a, testRequest(tt.mw, a), nil, nil, tt.inc)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestMWOptionsUseAdjustedWindow(t *testing.T) {
	a := testAsset(1)
	a.Capacity = 30
	end := reqStart.Add(time.Hour)
	got := MWOptions(a, testRequest(50, a), nil, &end, 10)
	if !reflect.DeepEqual(got, []int{0, 10, 20, 30}) {
		t.Fatalf("unexpected options %v", got)
	}
}

func fleet(n int) ([]model.Asset, []model.AssetState) {
	assets := make([]model.Asset, n)
	states := make([]model.AssetState, n)
	for i := range assets {
		assets[i] = testAsset(i + 1)
		assets[i].Capacity = float64(15 * (i + 1))
		states[i] = availableState(i + 1)
	}
	return assets, states
}

func TestGenerateCandidates(t *testing.T) {
	assets, states := fleet(3)
	states[1].Available = false
	req := testRequest(20, assets...)
	gen := NewGenerator(nil)
	gen.Increment = 5

	cands, err := gen.Generate(context.Background(), req, lookup.New(states, nil), execTime)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	perAsset := map[int][]int{}
	for _, c := range cands {
		if math.Abs(float64(c.MW)) > c.Asset.Capacity {
			t.Fatalf("candidate %s exceeds capacity %v", c, c.Asset.Capacity)
		}
		perAsset[c.Asset.ID] = append(perAsset[c.Asset.ID], c.MW)
	}
	if _, ok := perAsset[2]; ok {
		t.Fatalf("unavailable asset produced candidates: %v", perAsset[2])
	}
	// capacity 15 over 3h trims to 5MW, capacity 45 to 15MW
	if !reflect.DeepEqual(perAsset[1], []int{0, 5}) {
		t.Fatalf("asset 1 options %v", perAsset[1])
	}
	if !reflect.DeepEqual(perAsset[3], []int{0, 5, 10, 15}) {
		t.Fatalf("asset 3 options %v", perAsset[3])
	}
}

func TestGenerateIsIdempotentAndParallelSafe(t *testing.T) {
	assets, states := fleet(12)
	req := testRequest(40, assets...)
	lk := lookup.New(states, nil)

	seq := Generator{Increment: 5}
	first, err := seq.Generate(context.Background(), req, lk, execTime)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := seq.Generate(context.Background(), req, lookup.New(states, nil), execTime)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("candidate generation is not deterministic")
	}

	par := Generator{Increment: 5, Workers: 4}
	parallel, err := par.Generate(context.Background(), req, lk, execTime)
	if err != nil {
		t.Fatalf("parallel generate: %v", err)
	}
	if !reflect.DeepEqual(first, parallel) {
		t.Fatalf("parallel generation differs from sequential")
	}
}

func TestGenerateAmbiguousCurrentInstruction(t *testing.T) {
	assets, states := fleet(1)
	instrs := []model.Instruction{
		{ID: 1, AssetID: 1, Start: reqStart.Add(-time.Hour), End: reqStart.Add(time.Hour)},
		{ID: 2, AssetID: 1, Start: reqStart.Add(-30 * time.Minute), End: reqStart.Add(time.Hour)},
	}
	for _, workers := range []int{0, 2} {
		gen := Generator{Workers: workers}
		_, err := gen.Generate(context.Background(), testRequest(10, assets...), lookup.New(states, instrs), execTime)
		if !errors.Is(err, lookup.ErrAmbiguous) {
			t.Fatalf("workers=%d: expected ErrAmbiguous got %v", workers, err)
		}
	}
}

func TestGenerateSkipsEmptyWindow(t *testing.T) {
	assets, states := fleet(1)
	assets[0].NoticeToDeviateFromZero = 600
	cands, err := NewGenerator(nil).Generate(context.Background(), testRequest(10, assets...), lookup.New(states, nil), execTime)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected no candidates got %d", len(cands))
	}
}

func TestGenerateCancelled(t *testing.T) {
	assets, states := fleet(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewGenerator(nil).Generate(ctx, testRequest(10, assets...), lookup.New(states, nil), execTime); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}
}

func TestCandidateWindow(t *testing.T) {
	c := Candidate{Request: testRequest(10), MW: 10}
	if c.Hours() != 3 {
		t.Fatalf("expected 3h got %v", c.Hours())
	}
	end := reqStart.Add(90 * time.Minute)
	c.AdjustedEnd = &end
	if !c.End().Equal(end) || c.Hours() != 1.5 {
		t.Fatalf("adjusted end ignored: end=%v hours=%v", c.End(), c.Hours())
	}
}
