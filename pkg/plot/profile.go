// Package plot draws delivery profiles of a solve as HTML charts.
package plot

import (
	"sort"
	"time"

	"github.com/kilianp07/bmu-balancer/core/model"
	"github.com/kilianp07/bmu-balancer/core/presolve"
	"github.com/kilianp07/bmu-balancer/core/ramp"
)

// Point is the power level at an instant.
type Point struct {
	Time time.Time
	MW   float64
}

// Profile is a piecewise linear power curve.
type Profile struct {
	Name   string
	Points []Point
}

// trapezoid returns the ramp up, hold and ramp down points of mw delivered
// between start and end.
func trapezoid(name string, rates []model.Rate, start, end time.Time, mw float64) (Profile, error) {
	up, err := ramp.StartOffset(rates, mw)
	if err != nil {
		return Profile{}, err
	}
	down, err := ramp.EndOffset(rates, mw)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Name: name, Points: []Point{
		{Time: start.Add(hours(-up)), MW: 0},
		{Time: start, MW: mw},
		{Time: end, MW: mw},
		{Time: end.Add(hours(down)), MW: 0},
	}}, nil
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// RequestProfile is the ideal profile of req.
func RequestProfile(req model.DispatchRequest) (Profile, error) {
	return trapezoid("Request", req.Rates, req.Start, req.End, req.MW)
}

// CandidateProfile is the profile c would deliver.
func CandidateProfile(c presolve.Candidate) (Profile, error) {
	return trapezoid(c.String(), c.Asset.Rates, c.Start(), c.End(), float64(c.MW))
}

// InstructionProfile is the profile asset delivers when following in.
func InstructionProfile(asset model.Asset, in model.Instruction) (Profile, error) {
	return trapezoid(asset.String(), asset.Rates, in.Start, in.End, in.MW)
}

// at interpolates p at t, zero outside its span.
func (p Profile) at(t time.Time) float64 {
	pts := p.Points
	if len(pts) == 0 || t.Before(pts[0].Time) || t.After(pts[len(pts)-1].Time) {
		return 0
	}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		if t.After(b.Time) {
			continue
		}
		span := b.Time.Sub(a.Time)
		if span <= 0 {
			return b.MW
		}
		f := float64(t.Sub(a.Time)) / float64(span)
		return a.MW + f*(b.MW-a.MW)
	}
	return pts[len(pts)-1].MW
}

// Sum adds profiles pointwise. Every input is linear between its points, so
// sampling at the union of points is exact.
func Sum(name string, profiles ...Profile) Profile {
	var times []time.Time
	for _, p := range profiles {
		for _, pt := range p.Points {
			times = append(times, pt.Time)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	out := Profile{Name: name}
	for i, t := range times {
		if i > 0 && t.Equal(times[i-1]) {
			continue
		}
		var v float64
		for _, p := range profiles {
			v += p.at(t)
		}
		out.Points = append(out.Points, Point{Time: t, MW: v})
	}
	return out
}
