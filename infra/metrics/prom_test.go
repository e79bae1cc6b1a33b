package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/bmu-balancer/core/metrics"
)

func TestPromSink_RecordSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	ev := coremetrics.SolveEvent{
		BMU:          "BMU-1",
		Formulation:  "candidate",
		Status:       "optimal",
		Candidates:   4,
		Duration:     20 * time.Millisecond,
		InstructedMW: -10,
	}
	if err := sink.RecordSolve(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if err := sink.RecordSolve(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP bmu_solves_total Total number of solved dispatch requests by status
# TYPE bmu_solves_total counter
bmu_solves_total{bmu="BMU-1",formulation="candidate",status="optimal"} 2
`
	if err := testutil.CollectAndCompare(sink.solves, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if got := testutil.ToFloat64(sink.instructed.WithLabelValues("BMU-1")); got != -10 {
		t.Errorf("instructed gauge = %v", got)
	}
	if c := testutil.CollectAndCount(sink.duration); c == 0 {
		t.Errorf("duration not recorded")
	}
}

func TestPromSink_RecordInstructions(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	evs := []coremetrics.InstructionEvent{{AssetID: 1, MW: 10}, {AssetID: 1, MW: 0}, {AssetID: 3, MW: 5}}
	if err := sink.RecordInstructions(evs); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if got := testutil.ToFloat64(sink.instruction.WithLabelValues("1")); got != 2 {
		t.Errorf("asset 1 count = %v", got)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second sink: %v", err)
	}
	_ = first.RecordSolve(coremetrics.SolveEvent{BMU: "B", Formulation: "candidate", Status: "optimal"})
	_ = second.RecordSolve(coremetrics.SolveEvent{BMU: "B", Formulation: "candidate", Status: "optimal"})
	if got := testutil.ToFloat64(first.solves.WithLabelValues("B", "candidate", "optimal")); got != 2 {
		t.Errorf("shared counter = %v", got)
	}
}
