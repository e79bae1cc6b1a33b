package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/bmu-balancer/core/metrics"
	"github.com/kilianp07/bmu-balancer/infra/logger"
)

// InfluxConfig holds the connection settings of an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes solve events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSolve writes the solve summary as one point.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("bmu_solve").
		AddTag("solve_id", ev.SolveID).
		AddTag("request_id", strconv.Itoa(ev.RequestID)).
		AddTag("bmu", ev.BMU).
		AddTag("formulation", ev.Formulation).
		AddTag("status", ev.Status).
		AddField("candidates", ev.Candidates).
		AddField("variables", ev.Variables).
		AddField("constraints", ev.Constraints).
		AddField("nodes", ev.Nodes).
		AddField("duration_ms", round3(float64(ev.Duration)/float64(time.Millisecond))).
		AddField("requested_mw", round3(ev.RequestedMW)).
		AddField("instructed_mw", round3(ev.InstructedMW))
	if ev.Objective != nil {
		p = p.AddField("objective", round3(*ev.Objective))
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordInstructions writes one point per instruction at its start time.
func (s *InfluxSink) RecordInstructions(evs []coremetrics.InstructionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("bmu_instruction").
			AddTag("solve_id", ev.SolveID).
			AddTag("request_id", strconv.Itoa(ev.RequestID)).
			AddTag("asset_id", assetLabel(ev.AssetID)).
			AddField("mw", round3(ev.MW)).
			AddField("hours", round3(ev.End.Sub(ev.Start).Hours())).
			SetTime(ev.Start)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func assetLabel(id int) string {
	return strconv.Itoa(id)
}
