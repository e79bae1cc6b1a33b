package lookup

import (
	"fmt"
	"time"

	"github.com/kilianp07/bmu-balancer/core/model"
)

// Lookup indexes asset states and historical instructions by asset for the
// duration of one solve.
type Lookup struct {
	states       *Index[int, model.AssetState]
	instructions *Index[int, model.Instruction]
}

// New builds a Lookup from the reference data of a request.
func New(states []model.AssetState, instructions []model.Instruction) *Lookup {
	return &Lookup{
		states:       NewIndex(states, func(s model.AssetState) int { return s.AssetID }),
		instructions: NewIndex(instructions, func(i model.Instruction) int { return i.AssetID }),
	}
}

// FromInput builds a Lookup from loaded input data.
func FromInput(data model.InputData) *Lookup {
	return New(data.States, data.Instructions)
}

// States returns every state recorded for the asset.
func (l *Lookup) States(assetID int) []model.AssetState {
	return l.states.Get(assetID)
}

// StatesInPeriod returns the asset states overlapping [start, end].
func (l *Lookup) StatesInPeriod(assetID int, start, end time.Time) []model.AssetState {
	return InPeriod(l.states.Get(assetID), start, end)
}

// Instructions returns the historical instructions of the asset.
func (l *Lookup) Instructions(assetID int) []model.Instruction {
	return l.instructions.Get(assetID)
}

// CurrentInstruction returns the instruction running at t, or nil. More than
// one instruction at t is an ambiguous state and fails.
func (l *Lookup) CurrentInstruction(assetID int, t time.Time) (*model.Instruction, error) {
	in, err := AtTime(l.instructions.Get(assetID), t, true)
	if err != nil {
		return nil, fmt.Errorf("asset %d current instruction: %w", assetID, err)
	}
	return in, nil
}

// PriorInstruction returns the most recent instruction that ended before t.
func (l *Lookup) PriorInstruction(assetID int, t time.Time) *model.Instruction {
	return Prior(l.instructions.Get(assetID), t)
}
