// Package solvelog persists one record per solve so past decisions can be
// listed and audited.
package solvelog

import (
	"context"
	"time"

	"github.com/kilianp07/bmu-balancer/core/model"
)

// LogRecord captures one solve and its outcome.
type LogRecord struct {
	SolveID       string    `json:"solve_id"`
	Timestamp     time.Time `json:"timestamp"`
	ExecutionTime time.Time `json:"execution_time"`
	RequestID     int       `json:"request_id"`
	BMU           string    `json:"bmu"`
	RequestedMW   float64   `json:"requested_mw"`
	PricePerMWh   float64   `json:"price_per_mwh"`
	Formulation   string    `json:"formulation"`
	Status        string    `json:"status"`
	// Objective is nil when the solve was not optimal.
	Objective    *float64            `json:"objective"`
	Candidates   int                 `json:"candidates"`
	DurationMS   float64             `json:"duration_ms"`
	Instructions []InstructionRecord `json:"instructions"`
	Error        string              `json:"error,omitempty"`
}

// InstructionRecord is the logged form of an instruction.
type InstructionRecord struct {
	ID      int       `json:"id"`
	AssetID int       `json:"asset_id"`
	MW      float64   `json:"mw"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// InstructionRecords converts solved instructions for logging.
func InstructionRecords(instrs []model.Instruction) []InstructionRecord {
	out := make([]InstructionRecord, len(instrs))
	for i, in := range instrs {
		out[i] = InstructionRecord{ID: in.ID, AssetID: in.AssetID, MW: in.MW, Start: in.Start, End: in.End}
	}
	return out
}

// InstructedMW sums the signed MW of the record's instructions.
func (r LogRecord) InstructedMW() float64 {
	var total float64
	for _, in := range r.Instructions {
		total += in.MW
	}
	return total
}

// LogQuery defines filters for retrieving records. Zero values match all.
type LogQuery struct {
	Start   time.Time
	End     time.Time
	SolveID string
	BMU     string
	Status  string
	AssetID int
	// Limit keeps only the most recent records when positive.
	Limit int
}

// Match reports whether r satisfies every filter of q except Limit.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.SolveID != "" && r.SolveID != q.SolveID {
		return false
	}
	if q.BMU != "" && r.BMU != q.BMU {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.AssetID != 0 {
		for _, in := range r.Instructions {
			if in.AssetID == q.AssetID {
				return true
			}
		}
		return false
	}
	return true
}

func (q LogQuery) limit(recs []LogRecord) []LogRecord {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
