package engine

import (
	"errors"
	"fmt"
)

// Formulation selects how candidates are turned into decision variables.
type Formulation string

const (
	// FormulationCandidate uses one binary per candidate and a
	// single-assignment row per asset. Its size is linear in the
	// candidate count.
	FormulationCandidate Formulation = "candidate"
	// FormulationAssignment uses one binary per combination of per-asset
	// candidates and prices the exact imbalance of every combination. Its
	// size is the product of the per-asset candidate counts.
	FormulationAssignment Formulation = "assignment"
)

// DefaultMaxAssignments caps the combinations the assignment formulation enumerates.
const DefaultMaxAssignments = 10000

// Config tunes model construction and extraction.
type Config struct {
	Formulation Formulation `json:"formulation"`
	// OverWeight and UnderWeight price one MWh of over and under delivery
	// against the request profile. Zero values take the default of 1.
	OverWeight  float64 `json:"over_weight"`
	UnderWeight float64 `json:"under_weight"`
	// MaxAssignments bounds the combination count of the assignment
	// formulation.
	MaxAssignments int `json:"max_assignments"`
	// DropIdle removes zero MW instructions from solutions.
	DropIdle bool `json:"drop_idle"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Formulation == "" {
		c.Formulation = FormulationCandidate
	}
	if c.OverWeight == 0 {
		c.OverWeight = 1
	}
	if c.UnderWeight == 0 {
		c.UnderWeight = 1
	}
	if c.MaxAssignments <= 0 {
		c.MaxAssignments = DefaultMaxAssignments
	}
}

// Validate checks the configuration after defaults were applied.
func (c Config) Validate() error {
	switch c.Formulation {
	case FormulationCandidate, FormulationAssignment:
	default:
		return fmt.Errorf("engine: unknown formulation %q", c.Formulation)
	}
	if c.OverWeight < 0 || c.UnderWeight < 0 {
		return errors.New("engine: imbalance weights must not be negative")
	}
	if c.UnderWeight < c.OverWeight {
		return fmt.Errorf("engine: under_weight %v must be at least over_weight %v", c.UnderWeight, c.OverWeight)
	}
	return nil
}
