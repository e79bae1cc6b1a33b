package presolve

import (
	"time"

	"github.com/kilianp07/bmu-balancer/core/model"
)

// AdjustedStart returns the earliest start the asset can honour when the
// request starts too soon after executionTime. Nil means the request start
// is usable as is.
func AdjustedStart(asset model.Asset, req model.DispatchRequest, current *model.Instruction, executionTime time.Time) *time.Time {
	earliestBid := executionTime.Add(model.Minutes(asset.NoticeToDeliverBid))
	if current != nil {
		if req.Start.Before(earliestBid) {
			return &earliestBid
		}
		return nil
	}

	earliestNonZero := executionTime.Add(model.Minutes(asset.NoticeToDeviateFromZero))
	if req.Start.Before(earliestNonZero) || req.Start.Before(earliestBid) {
		start := earliestBid
		if earliestNonZero.After(start) {
			start = earliestNonZero
		}
		return &start
	}
	return nil
}

// AdjustedEnd clips delivery to the asset's maximum delivery period. Nil
// means the request end is usable as is.
func AdjustedEnd(asset model.Asset, req model.DispatchRequest, current *model.Instruction, adjustedStart *time.Time) *time.Time {
	maxDelivery, limited := asset.MaxDelivery()
	if !limited {
		return nil
	}

	if current == nil {
		if req.Duration() <= maxDelivery {
			return nil
		}
		end := orTime(adjustedStart, req.Start).Add(maxDelivery)
		return &end
	}

	if req.End.Sub(current.Start) > maxDelivery {
		end := orTime(adjustedStart, current.Start).Add(maxDelivery)
		return &end
	}
	return nil
}

func orTime(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}
