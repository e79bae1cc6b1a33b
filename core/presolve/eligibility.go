package presolve

import (
	"github.com/kilianp07/bmu-balancer/core/logger"
	"github.com/kilianp07/bmu-balancer/core/lookup"
	"github.com/kilianp07/bmu-balancer/core/model"
)

// IsEligible reports whether asset may be assigned to req. Checks run in
// order and stop at the first failure, which is logged at warn level.
func IsEligible(asset model.Asset, req model.DispatchRequest, states []model.AssetState, current, prior *model.Instruction, log logger.Logger) bool {
	log = logger.OrNop(log)
	if !isAvailable(states, req) {
		log.Warnf("%s could not be used as candidate because not available", asset)
		return false
	}
	if !respectsMinZeroTime(asset, req, current, prior) {
		log.Warnf("%s could not be used as candidate because does not respect min zero time", asset)
		return false
	}
	if !respectsMinNonZeroTime(asset, req, current) {
		log.Warnf("%s could not be used as candidate because does not respect min non-zero time", asset)
		return false
	}
	return true
}

func isAvailable(states []model.AssetState, req model.DispatchRequest) bool {
	overlapping := lookup.InPeriod(states, req.Start, req.End)
	if len(overlapping) == 0 {
		return false
	}
	for _, s := range overlapping {
		if !s.Available {
			return false
		}
	}
	return lookup.Covers(overlapping, req.Start, req.End)
}

func respectsMinZeroTime(asset model.Asset, req model.DispatchRequest, current, prior *model.Instruction) bool {
	if prior == nil || current != nil {
		return true
	}
	return req.Start.Sub(prior.End) > model.Minutes(asset.MinZeroTime)
}

func respectsMinNonZeroTime(asset model.Asset, req model.DispatchRequest, current *model.Instruction) bool {
	minNonZero := model.Minutes(asset.MinNonZeroTime)
	if current == nil {
		return req.End.Sub(req.Start) > minNonZero
	}
	return req.End.Sub(current.Start) > minNonZero
}
