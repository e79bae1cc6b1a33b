// Package config loads the balancer configuration from a YAML or JSON file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/bmu-balancer/core/engine"
	"github.com/kilianp07/bmu-balancer/core/factory"
	"github.com/kilianp07/bmu-balancer/core/metrics"
	"github.com/kilianp07/bmu-balancer/core/presolve"
	"github.com/kilianp07/bmu-balancer/core/solvelog"
	"github.com/kilianp07/bmu-balancer/infra/mqtt"
)

// EnvPrefix marks environment variables overriding file settings. Nested
// keys are separated by a double underscore, as in BMU_ENGINE__WORKERS.
const EnvPrefix = "BMU_"

// DefaultSolver is used when no solver section is configured.
const DefaultSolver = "simplex"

type Config struct {
	Engine   EngineConfig         `json:"engine"`
	Solver   factory.ModuleConfig `json:"solver"`
	SolveLog solvelog.Config      `json:"solve_log"`
	Metrics  metrics.Config       `json:"metrics"`
	MQTT     mqtt.Config          `json:"mqtt"`
	Sentry   SentryConfig         `json:"sentry"`
}

// EngineConfig groups candidate generation and model settings.
type EngineConfig struct {
	// Increment is the MW step between candidate levels.
	Increment int `json:"increment"`
	// Workers bounds concurrent candidate generation.
	Workers        int                `json:"workers"`
	Formulation    engine.Formulation `json:"formulation"`
	OverWeight     float64            `json:"over_weight"`
	UnderWeight    float64            `json:"under_weight"`
	MaxAssignments int                `json:"max_assignments"`
	DropIdle       bool               `json:"drop_idle"`
	// SolveTimeoutMS bounds a whole solve; zero leaves it unbounded.
	SolveTimeoutMS int `json:"solve_timeout_ms"`
}

// Model returns the engine settings of the section.
func (c EngineConfig) Model() engine.Config {
	return engine.Config{
		Formulation:    c.Formulation,
		OverWeight:     c.OverWeight,
		UnderWeight:    c.UnderWeight,
		MaxAssignments: c.MaxAssignments,
		DropIdle:       c.DropIdle,
	}
}

// SolveTimeout returns the configured solve deadline.
func (c EngineConfig) SolveTimeout() time.Duration {
	return time.Duration(c.SolveTimeoutMS) * time.Millisecond
}

// SetDefaults applies sane defaults.
func (c *EngineConfig) SetDefaults() {
	if c.Increment <= 0 {
		c.Increment = presolve.DefaultIncrement
	}
	m := c.Model()
	m.SetDefaults()
	c.Formulation = m.Formulation
	c.OverWeight = m.OverWeight
	c.UnderWeight = m.UnderWeight
	c.MaxAssignments = m.MaxAssignments
}

// Validate checks the section after defaults were applied.
func (c EngineConfig) Validate() error {
	if c.Workers < 0 {
		return errors.New("engine: workers must not be negative")
	}
	if c.SolveTimeoutMS < 0 {
		return errors.New("engine: solve_timeout_ms must not be negative")
	}
	return c.Model().Validate()
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	c.Engine.SetDefaults()
	if c.Solver.Type == "" {
		c.Solver.Type = DefaultSolver
	}
	c.SolveLog.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.SolveLog.Validate(); err != nil {
		return fmt.Errorf("solve_log: %w", err)
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: sink %d has no type", i)
		}
	}
	return c.MQTT.Validate()
}

// Load reads the configuration at path, applies a .env file from the working
// directory when present and then BMU_ environment overrides. An empty path
// loads defaults and environment only.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps BMU_SOLVE_LOG__PATH to solve_log.path.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
