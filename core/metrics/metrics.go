package metrics

import "time"

// SolveEvent summarises one solve of a dispatch request.
type SolveEvent struct {
	SolveID     string
	RequestID   int
	BMU         string
	Formulation string
	Status      string
	// Objective is nil when the solve was not optimal.
	Objective    *float64
	Candidates   int
	Variables    int
	Constraints  int
	Nodes        int
	Duration     time.Duration
	RequestedMW  float64
	InstructedMW float64
	Time         time.Time
}

// InstructionEvent is one instruction produced by a solve.
type InstructionEvent struct {
	SolveID   string
	RequestID int
	AssetID   int
	MW        float64
	Start     time.Time
	End       time.Time
}

// MetricsSink records solve outcomes.
type MetricsSink interface {
	RecordSolve(ev SolveEvent) error
}

// InstructionRecorder is implemented by sinks that also record the
// individual instructions of a solve.
type InstructionRecorder interface {
	RecordInstructions(evs []InstructionEvent) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error                 { return nil }
func (NopSink) RecordInstructions([]InstructionEvent) error { return nil }
