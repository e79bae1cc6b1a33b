package presolve

import (
	"math"
	"time"

	"github.com/kilianp07/bmu-balancer/core/model"
)

// DefaultIncrement is the MW step between enumerated power levels.
const DefaultIncrement = 10

// MWOptions enumerates the power levels asset may be assigned for req over
// the usable window, in ascending order. Levels carry the request's sign.
func MWOptions(asset model.Asset, req model.DispatchRequest, adjustedStart, adjustedEnd *time.Time, increment int) []int {
	if increment <= 0 {
		increment = DefaultIncrement
	}

	if req.IsImport() && asset.SingleImportMW != 0 {
		return []int{-abs(asset.SingleImportMW), 0}
	}
	if !req.IsImport() && asset.SingleExportMW != 0 {
		return []int{0, abs(asset.SingleExportMW)}
	}

	start := orTime(adjustedStart, req.Start)
	end := orTime(adjustedEnd, req.End)
	bound := int(MWBound(asset, req, end.Sub(start).Hours()))

	steps := bound / increment
	options := make([]int, 0, steps+1)
	if req.IsImport() {
		for i := steps; i >= 0; i-- {
			options = append(options, -i*increment)
		}
		return options
	}
	for i := 0; i <= steps; i++ {
		options = append(options, i*increment)
	}
	return options
}

// MWBound returns the largest power magnitude the asset can deliver for req
// over a window of the given length.
func MWBound(asset model.Asset, req model.DispatchRequest, hours float64) float64 {
	bound := math.Abs(req.MW)
	if hours > 0 && math.Abs(req.MW*hours) > asset.Capacity {
		bound = math.Min(bound, math.Trunc(asset.Capacity/hours))
	}
	limit := asset.MaxExportMWh
	if req.IsImport() {
		limit = asset.MaxImportMWh
	}
	if limit > 0 {
		bound = math.Min(bound, limit)
	}
	return math.Max(bound, 0)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
