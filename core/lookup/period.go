package lookup

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/bmu-balancer/core/model"
)

var (
	// ErrNotFound is returned when a record was required at a time but none exists.
	ErrNotFound = errors.New("lookup: no record found")
	// ErrAmbiguous is returned when more than one record matches where one is expected.
	ErrAmbiguous = errors.New("lookup: more than one record found")
)

// AtTime returns the record whose window contains t, bounds included.
// When nullable is false a missing record is an error; more than one match
// is always an error.
func AtTime[T model.Window](items []T, t time.Time, nullable bool) (*T, error) {
	var found []T
	for _, it := range items {
		start, end := it.Bounds()
		if !t.Before(start) && !t.After(end) {
			found = append(found, it)
		}
	}
	switch {
	case len(found) == 0 && nullable:
		return nil, nil
	case len(found) == 0:
		return nil, fmt.Errorf("at %s: %w", t.Format(time.RFC3339), ErrNotFound)
	case len(found) > 1:
		return nil, fmt.Errorf("at %s got %d records: %w", t.Format(time.RFC3339), len(found), ErrAmbiguous)
	}
	return &found[0], nil
}

// InPeriod returns the records overlapping [start, end] for a positive
// length of time.
func InPeriod[T model.Window](items []T, start, end time.Time) []T {
	var out []T
	for _, it := range items {
		s, e := it.Bounds()
		if Overlap(start, end, s, e) > 0 {
			out = append(out, it)
		}
	}
	return out
}

// Overlap returns the length of the intersection of two windows.
func Overlap(start1, end1, start2, end2 time.Time) time.Duration {
	latestStart := start1
	if start2.After(latestStart) {
		latestStart = start2
	}
	earliestEnd := end1
	if end2.Before(earliestEnd) {
		earliestEnd = end2
	}
	if d := earliestEnd.Sub(latestStart); d > 0 {
		return d
	}
	return 0
}

// Covers reports whether the union of the windows covers [start, end].
func Covers[T model.Window](items []T, start, end time.Time) bool {
	cursor := start
	for progressed := true; progressed && cursor.Before(end); {
		progressed = false
		for _, it := range items {
			s, e := it.Bounds()
			if !s.After(cursor) && e.After(cursor) {
				cursor = e
				progressed = true
			}
		}
	}
	return !cursor.Before(end)
}

// Prior returns the instruction with the latest end strictly before t.
func Prior(instructions []model.Instruction, t time.Time) *model.Instruction {
	var best *model.Instruction
	for i := range instructions {
		in := instructions[i]
		if !in.End.Before(t) {
			continue
		}
		if best == nil || in.End.After(best.End) {
			best = &instructions[i]
		}
	}
	return best
}
