// Package mqtt defines how solved instructions are handed to assets.
package mqtt

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/bmu-balancer/core/model"
)

// ErrAckTimeout is returned when no acknowledgment is received before the timeout.
var ErrAckTimeout = errors.New("timeout waiting for ack")

// InstructionMessage is the payload sent to an asset for one instruction.
type InstructionMessage struct {
	CommandID     string    `json:"command_id"`
	SolveID       string    `json:"solve_id"`
	InstructionID int       `json:"instruction_id"`
	RequestID     int       `json:"request_id"`
	AssetID       int       `json:"asset_id"`
	MW            float64   `json:"mw"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Timestamp     int64     `json:"timestamp"`
}

// NewInstructionMessage builds the payload of instr for the given solve.
// CommandID and Timestamp are filled in by the publisher.
func NewInstructionMessage(solveID string, instr model.Instruction) InstructionMessage {
	return InstructionMessage{
		SolveID:       solveID,
		InstructionID: instr.ID,
		RequestID:     instr.RequestID,
		AssetID:       instr.AssetID,
		MW:            instr.MW,
		Start:         instr.Start.UTC(),
		End:           instr.End.UTC(),
	}
}

// Publisher sends instructions to assets and tracks their acknowledgments.
type Publisher interface {
	// Publish sends msg to its asset and returns the command identifier
	// used to track the acknowledgment.
	Publish(ctx context.Context, msg InstructionMessage) (commandID string, err error)

	// WaitForAck waits for an acknowledgment for the provided command
	// identifier or until the timeout expires.
	WaitForAck(commandID string, timeout time.Duration) (bool, error)
}

// Delivery is the outcome of publishing one instruction.
type Delivery struct {
	AssetID   int
	CommandID string
	Acked     bool
	Err       error
}

// PublishAll publishes every instruction then waits up to ackTimeout for
// each acknowledgment. A zero ackTimeout skips acknowledgment tracking.
// Publication stops at the first publish error.
func PublishAll(ctx context.Context, p Publisher, solveID string, instrs []model.Instruction, ackTimeout time.Duration) ([]Delivery, error) {
	out := make([]Delivery, 0, len(instrs))
	for _, in := range instrs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		id, err := p.Publish(ctx, NewInstructionMessage(solveID, in))
		if err != nil {
			return out, err
		}
		out = append(out, Delivery{AssetID: in.AssetID, CommandID: id})
	}
	if ackTimeout <= 0 {
		return out, nil
	}
	for i := range out {
		ok, err := p.WaitForAck(out[i].CommandID, ackTimeout)
		out[i].Acked = ok
		out[i].Err = err
	}
	return out, nil
}
