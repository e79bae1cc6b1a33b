package model

import "time"

// Instruction is a directive for an asset to hold MW between Start and End.
// RequestID references the request that originated it, 0 when unknown.
type Instruction struct {
	ID        int
	AssetID   int
	MW        float64
	Start     time.Time
	End       time.Time
	RequestID int
}

// Hours returns the instruction length in hours.
func (i Instruction) Hours() float64 { return i.End.Sub(i.Start).Hours() }

// AssetState records the availability of an asset over a period.
type AssetState struct {
	ID        int
	AssetID   int
	Start     time.Time
	End       time.Time
	Charge    float64
	Available bool
}

// Window is implemented by records bounded in time.
type Window interface {
	Bounds() (time.Time, time.Time)
}

// Bounds implements Window.
func (i Instruction) Bounds() (time.Time, time.Time) { return i.Start, i.End }

// Bounds implements Window.
func (s AssetState) Bounds() (time.Time, time.Time) { return s.Start, s.End }
