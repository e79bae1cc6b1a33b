// Package infra holds the adapters behind the core interfaces: the LP
// solver, metrics sinks, the MQTT publisher and error monitoring.
package infra
