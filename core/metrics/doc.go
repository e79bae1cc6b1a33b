// Package metrics defines the sinks recording solve outcomes. Sinks such as
// the Prometheus and InfluxDB ones in infra/metrics are built from
// configuration through the factory registry; several configured sinks are
// combined into a MultiSink.
package metrics
