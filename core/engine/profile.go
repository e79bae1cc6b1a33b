package engine

import (
	"math"
	"sort"

	"github.com/kilianp07/bmu-balancer/core/model"
	"github.com/kilianp07/bmu-balancer/core/presolve"
	"github.com/kilianp07/bmu-balancer/core/ramp"
)

// trapezoid is a delivery profile: a linear ramp from zero to level, a
// plateau between start and end, then a linear ramp back to zero. Times are
// hours relative to the request start; level is a magnitude.
type trapezoid struct {
	rampStart, start, end, rampEnd float64
	level                          float64
}

func newTrapezoid(start, end, level, up, down float64) trapezoid {
	return trapezoid{
		rampStart: start - math.Abs(up),
		start:     start,
		end:       end,
		rampEnd:   end + math.Abs(down),
		level:     math.Abs(level),
	}
}

// area returns the energy under the profile in MWh.
func (tr trapezoid) area() float64 {
	return (tr.end - tr.start + tr.rampEnd - tr.rampStart) * 0.5 * tr.level
}

// at returns the level at t. Vertical edges are resolved arbitrarily; callers
// only sample strictly between breakpoints.
func (tr trapezoid) at(t float64) float64 {
	switch {
	case tr.level == 0 || t <= tr.rampStart || t >= tr.rampEnd:
		return 0
	case t < tr.start:
		return tr.level * (t - tr.rampStart) / (tr.start - tr.rampStart)
	case t <= tr.end:
		return tr.level
	default:
		return tr.level * (tr.rampEnd - t) / (tr.rampEnd - tr.end)
	}
}

func (tr trapezoid) breakpoints() []float64 {
	return []float64{tr.rampStart, tr.start, tr.end, tr.rampEnd}
}

// requestProfile is the ideal profile of the request, ramping with the
// request's own rates.
func requestProfile(req model.DispatchRequest) (trapezoid, error) {
	up, err := ramp.StartOffset(req.Rates, req.MW)
	if err != nil {
		return trapezoid{}, err
	}
	down, err := ramp.EndOffset(req.Rates, req.MW)
	if err != nil {
		return trapezoid{}, err
	}
	return newTrapezoid(0, req.Duration().Hours(), req.MW, up, down), nil
}

// candidateProfile is the profile delivered by a candidate ramping with its
// asset's rates.
func candidateProfile(c presolve.Candidate) (trapezoid, error) {
	mw := float64(c.MW)
	up, err := ramp.StartOffset(c.Asset.Rates, mw)
	if err != nil {
		return trapezoid{}, err
	}
	down, err := ramp.EndOffset(c.Asset.Rates, mw)
	if err != nil {
		return trapezoid{}, err
	}
	origin := c.Request.Start
	return newTrapezoid(c.Start().Sub(origin).Hours(), c.End().Sub(origin).Hours(), mw, up, down), nil
}

// mismatch integrates the positive and negative parts of the aggregate of
// delivered minus ideal between consecutive breakpoints, where the
// difference is linear.
func mismatch(ideal trapezoid, delivered []trapezoid) (over, under float64) {
	pts := ideal.breakpoints()
	for _, d := range delivered {
		pts = append(pts, d.breakpoints()...)
	}
	sort.Float64s(pts)

	diff := func(t float64) float64 {
		v := -ideal.at(t)
		for _, d := range delivered {
			v += d.at(t)
		}
		return v
	}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		width := b - a
		if width <= 0 {
			continue
		}
		// sample inside the interval and extend to both ends
		q1, q3 := diff(a+width/4), diff(a+3*width/4)
		slope := (q3 - q1) / (width / 2)
		fa := q1 - slope*width/4
		fb := q3 + slope*width/4
		over += positiveArea(fa, fb, width)
		under += positiveArea(-fa, -fb, width)
	}
	return over, under
}

// positiveArea integrates max(f, 0) for f linear from fa to fb over width.
func positiveArea(fa, fb, width float64) float64 {
	switch {
	case fa >= 0 && fb >= 0:
		return (fa + fb) * 0.5 * width
	case fa <= 0 && fb <= 0:
		return 0
	case fa > 0:
		return fa * (width * fa / (fa - fb)) * 0.5
	default:
		return fb * (width * fb / (fb - fa)) * 0.5
	}
}
