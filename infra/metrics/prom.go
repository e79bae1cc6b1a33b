package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/bmu-balancer/core/metrics"
)

// PromSink records solve outcomes in Prometheus metrics.
type PromSink struct {
	solves      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	candidates  prometheus.Histogram
	instructed  *prometheus.GaugeVec
	instruction *prometheus.CounterVec
}

// NewPromSink registers solve metrics on the default Prometheus registerer.
// The endpoint is served separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bmu_solves_total",
			Help: "Total number of solved dispatch requests by status",
		}, []string{"bmu", "formulation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bmu_solve_duration_seconds",
			Help:    "Time spent building and solving a dispatch request",
			Buckets: prometheus.DefBuckets,
		}, []string{"formulation"}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bmu_solve_candidates",
			Help:    "Number of candidates generated per dispatch request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		instructed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bmu_instructed_mw",
			Help: "Signed MW instructed by the last solve of a BMU",
		}, []string{"bmu"}),
		instruction: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bmu_instructions_total",
			Help: "Total number of instructions issued per asset",
		}, []string{"asset_id"}),
	}

	var err error
	if s.solves, err = register(reg, s.solves); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.candidates, err = register(reg, s.candidates); err != nil {
		return nil, err
	}
	if s.instructed, err = register(reg, s.instructed); err != nil {
		return nil, err
	}
	if s.instruction, err = register(reg, s.instruction); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing a collector registered earlier under the
// same description.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSolve implements coremetrics.MetricsSink.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.BMU, ev.Formulation, ev.Status).Inc()
	s.duration.WithLabelValues(ev.Formulation).Observe(ev.Duration.Seconds())
	s.candidates.Observe(float64(ev.Candidates))
	s.instructed.WithLabelValues(ev.BMU).Set(ev.InstructedMW)
	return nil
}

// RecordInstructions implements coremetrics.InstructionRecorder.
func (s *PromSink) RecordInstructions(evs []coremetrics.InstructionEvent) error {
	for _, ev := range evs {
		s.instruction.WithLabelValues(assetLabel(ev.AssetID)).Inc()
	}
	return nil
}
