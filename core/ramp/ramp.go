// Package ramp computes how long an asset takes to reach or leave a power
// level and what that transition costs.
package ramp

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/bmu-balancer/core/model"
)

// ErrRateCount is returned when a rate table does not hold exactly one rate.
// Multiple rate bands per asset are not supported.
var ErrRateCount = errors.New("ramp: exactly one rate required")

// ErrZeroRate is returned when a nonzero level must be reached at a zero rate.
var ErrZeroRate = errors.New("ramp: zero ramp rate")

func single(rates []model.Rate) (model.Rate, error) {
	if len(rates) != 1 {
		return model.Rate{}, fmt.Errorf("got %d rates: %w", len(rates), ErrRateCount)
	}
	return rates[0], nil
}

// UpRate returns the ramp-up rate for the direction of mw.
func UpRate(r model.Rate, mw float64) float64 {
	if mw < 0 {
		return r.RampUpImport
	}
	return r.RampUpExport
}

// DownRate returns the ramp-down rate for the direction of mw.
func DownRate(r model.Rate, mw float64) float64 {
	if mw < 0 {
		return r.RampDownImport
	}
	return r.RampDownExport
}

// StartOffset returns the hours needed to ramp from zero up to mw.
func StartOffset(rates []model.Rate, mw float64) (float64, error) {
	r, err := single(rates)
	if err != nil {
		return 0, err
	}
	return offset(mw, UpRate(r, mw))
}

// EndOffset returns the hours needed to ramp from mw back down to zero.
func EndOffset(rates []model.Rate, mw float64) (float64, error) {
	r, err := single(rates)
	if err != nil {
		return 0, err
	}
	return offset(mw, DownRate(r, mw))
}

// Cost returns the cost of ramping the asset to mw and back:
// (|mw|/up)*0.5 + (|mw|/down)*0.5.
func Cost(asset model.Asset, mw float64) (float64, error) {
	up, err := StartOffset(asset.Rates, mw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", asset, err)
	}
	down, err := EndOffset(asset.Rates, mw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", asset, err)
	}
	return math.Abs(up)*0.5 + math.Abs(down)*0.5, nil
}

func offset(mw, rate float64) (float64, error) {
	if mw == 0 {
		return 0, nil
	}
	if rate == 0 {
		return 0, fmt.Errorf("level %g: %w", mw, ErrZeroRate)
	}
	return mw / rate, nil
}
