package model

import "time"

// DispatchRequest is an accepted bid-offer acceptance (BOA) for a BMU.
// MW is signed: negative values request an import, positive an export.
type DispatchRequest struct {
	ID          int
	BMU         BMU
	Start       time.Time
	End         time.Time
	MW          float64
	PricePerMWh float64
	// Rates describe the ramp profile the request itself expects.
	Rates []Rate
}

// IsImport reports whether the request asks the BMU to take power.
func (r DispatchRequest) IsImport() bool { return r.MW < 0 }

// Duration returns the length of the requested delivery window.
func (r DispatchRequest) Duration() time.Duration { return r.End.Sub(r.Start) }

// Assets returns the assets of the requested BMU.
func (r DispatchRequest) Assets() []Asset { return r.BMU.Assets }

// Parameters holds execution wide settings of a solve.
type Parameters struct {
	ExecutionTime time.Time
}

// InputData is the reference data of a single solve.
type InputData struct {
	Parameters   Parameters
	Assets       []Asset
	Rates        []Rate
	States       []AssetState
	BMUs         []BMU
	Instructions []Instruction
	Request      DispatchRequest
}
