package metrics

import "github.com/kilianp07/bmu-balancer/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusPort is the listen address of the /metrics endpoint, empty
	// to disable it.
	PrometheusPort string `json:"prometheus_port" yaml:"prometheus_port"`
}
