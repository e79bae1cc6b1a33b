// Package app wires configuration into a runnable balancing service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/bmu-balancer/config"
	"github.com/kilianp07/bmu-balancer/core/balancer"
	"github.com/kilianp07/bmu-balancer/core/engine"
	coremetrics "github.com/kilianp07/bmu-balancer/core/metrics"
	"github.com/kilianp07/bmu-balancer/core/model"
	coremon "github.com/kilianp07/bmu-balancer/core/monitoring"
	coremqtt "github.com/kilianp07/bmu-balancer/core/mqtt"
	"github.com/kilianp07/bmu-balancer/core/optimize"
	"github.com/kilianp07/bmu-balancer/core/presolve"
	"github.com/kilianp07/bmu-balancer/core/solvelog"
	"github.com/kilianp07/bmu-balancer/infra/logger"
	"github.com/kilianp07/bmu-balancer/infra/metrics"
	"github.com/kilianp07/bmu-balancer/infra/monitoring"
	"github.com/kilianp07/bmu-balancer/infra/mqtt"
	_ "github.com/kilianp07/bmu-balancer/infra/solver/simplex"
	"github.com/kilianp07/bmu-balancer/pkg/inputs"
)

// ErrPublishDisabled is returned when publication is requested without an
// MQTT publisher.
var ErrPublishDisabled = errors.New("app: mqtt publication is not enabled")

// Outcome is the result of one solve handled by the service.
type Outcome struct {
	SolveID    string
	Result     balancer.Result
	Deliveries []coremqtt.Delivery
	Elapsed    time.Duration
}

// Service orchestrates balancing, metrics, the solve log and publication.
type Service struct {
	balancer   *balancer.Balancer
	formula    engine.Formulation
	timeout    time.Duration
	ackTimeout time.Duration
	sink       coremetrics.MetricsSink
	store      solvelog.LogStore
	publisher  coremqtt.Publisher
	disconnect func()
	promPort   string
	log        logger.Logger
	newID      func() string
	now        func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher replaces the configured MQTT publisher.
func WithPublisher(p coremqtt.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithMetricsSink replaces the configured metrics sinks.
func WithMetricsSink(m coremetrics.MetricsSink) Option { return func(s *Service) { s.sink = m } }

// WithLogStore replaces the configured solve log.
func WithLogStore(st solvelog.LogStore) Option { return func(s *Service) { s.store = st } }

// WithIDs replaces the solve id generator.
func WithIDs(f func() string) Option { return func(s *Service) { s.newID = f } }

// WithClock replaces the clock stamping log records.
func WithClock(f func() time.Time) Option { return func(s *Service) { s.now = f } }

// New creates a Service from the configuration. Components replaced by
// options are not built from cfg.
func New(cfg *config.Config, options ...Option) (*Service, error) {
	log := logger.New("service")
	s := &Service{
		timeout:    cfg.Engine.SolveTimeout(),
		ackTimeout: cfg.MQTT.AckTimeout(),
		promPort:   cfg.Metrics.PrometheusPort,
		log:        log,
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, o := range options {
		o(s)
	}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	solver, err := optimize.NewSolver(cfg.Solver)
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}
	eng, err := engine.New(solver, cfg.Engine.Model(), logger.New("engine"))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	s.formula = eng.Config().Formulation
	gen := presolve.Generator{
		Increment: cfg.Engine.Increment,
		Workers:   cfg.Engine.Workers,
		Logger:    logger.New("presolve"),
	}
	if s.balancer, err = balancer.New(gen, eng, logger.New("balancer")); err != nil {
		return nil, err
	}

	if s.sink == nil {
		if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			return nil, fmt.Errorf("metrics sinks: %w", err)
		}
	}
	if s.store == nil {
		if s.store, err = solvelog.Open(cfg.SolveLog); err != nil {
			return nil, fmt.Errorf("solve log: %w", err)
		}
	}
	if s.publisher == nil && cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = s.store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.publisher = client
		s.disconnect = client.Disconnect
	}
	return s, nil
}

// SolveFile loads the input document at path and solves it.
func (s *Service) SolveFile(ctx context.Context, path string, publish bool) (Outcome, error) {
	data, err := inputs.Load(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("load input: %w", err)
	}
	return s.Solve(ctx, data, publish)
}

// Solve balances data.Request, records the outcome and, when publish is
// set, sends the instructions to the assets. Recording failures are logged
// and do not fail the solve.
func (s *Service) Solve(ctx context.Context, data model.InputData, publish bool) (Outcome, error) {
	if publish && s.publisher == nil {
		return Outcome{}, ErrPublishDisabled
	}
	out := Outcome{SolveID: s.newID()}
	req := data.Request
	tags := coremon.SolveTags(out.SolveID, req.ID, req.BMU.String())

	solveCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := time.Now()
	res, err := s.balancer.Balance(solveCtx, data)
	out.Elapsed = time.Since(started)
	out.Result = res
	s.record(ctx, out, data, err)
	if err != nil {
		coremon.Capture(err, "balancer", tags)
		return out, fmt.Errorf("solve %s: %w", out.SolveID, err)
	}

	if publish && res.Solution.Optimal() {
		out.Deliveries, err = coremqtt.PublishAll(ctx, s.publisher, out.SolveID, res.Solution.Instructions, s.ackTimeout)
		if err != nil {
			coremon.Capture(err, "publish", tags)
			return out, fmt.Errorf("publish %s: %w", out.SolveID, err)
		}
		for _, d := range out.Deliveries {
			if d.Err != nil {
				s.log.Warnf("asset %d did not acknowledge %s: %v", d.AssetID, d.CommandID, d.Err)
			}
		}
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, out Outcome, data model.InputData, solveErr error) {
	res := out.Result
	req := data.Request
	status := string(res.Solution.Status)
	if solveErr != nil {
		status = "error"
	}
	now := s.now()

	ev := coremetrics.SolveEvent{
		SolveID:      out.SolveID,
		RequestID:    req.ID,
		BMU:          req.BMU.String(),
		Formulation:  string(s.formula),
		Status:       status,
		Objective:    res.Solution.Objective,
		Candidates:   len(res.Candidates),
		Variables:    res.Stats.Variables,
		Constraints:  res.Stats.Constraints,
		Nodes:        res.Stats.Nodes,
		Duration:     out.Elapsed,
		RequestedMW:  req.MW,
		InstructedMW: res.Solution.TotalMW(),
		Time:         now,
	}
	if err := s.sink.RecordSolve(ev); err != nil {
		s.log.Warnf("record solve metrics: %v", err)
	}
	if rec, ok := s.sink.(coremetrics.InstructionRecorder); ok && len(res.Solution.Instructions) > 0 {
		evs := make([]coremetrics.InstructionEvent, len(res.Solution.Instructions))
		for i, in := range res.Solution.Instructions {
			evs[i] = coremetrics.InstructionEvent{
				SolveID: out.SolveID, RequestID: in.RequestID, AssetID: in.AssetID,
				MW: in.MW, Start: in.Start, End: in.End,
			}
		}
		if err := rec.RecordInstructions(evs); err != nil {
			s.log.Warnf("record instruction metrics: %v", err)
		}
	}

	lr := solvelog.LogRecord{
		SolveID:       out.SolveID,
		Timestamp:     now,
		ExecutionTime: data.Parameters.ExecutionTime,
		RequestID:     req.ID,
		BMU:           req.BMU.String(),
		RequestedMW:   req.MW,
		PricePerMWh:   req.PricePerMWh,
		Formulation:   string(s.formula),
		Status:        status,
		Objective:     res.Solution.Objective,
		Candidates:    len(res.Candidates),
		DurationMS:    float64(out.Elapsed) / float64(time.Millisecond),
		Instructions:  solvelog.InstructionRecords(res.Solution.Instructions),
	}
	if solveErr != nil {
		lr.Error = solveErr.Error()
	}
	if err := s.store.Append(ctx, lr); err != nil {
		s.log.Warnf("append solve log: %v", err)
	}
}

// History returns logged solves matching q.
func (s *Service) History(ctx context.Context, q solvelog.LogQuery) ([]solvelog.LogRecord, error) {
	return s.store.Query(ctx, q)
}

// ServeMetrics exposes Prometheus metrics until ctx is cancelled. It returns
// immediately when no port is configured.
func (s *Service) ServeMetrics(ctx context.Context) error {
	if s.promPort == "" {
		return nil
	}
	return metrics.StartPromServer(ctx, s.promPort)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.disconnect != nil {
		s.disconnect()
	}
	coremon.Flush(2 * time.Second)
	var errs []error
	if c, ok := s.sink.(coremetrics.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}
