// Package telemetry wires OpenTelemetry tracing, metrics and log export over
// OTLP/HTTP. When disabled every provider is a no-op so instrumented code
// never needs to branch.
package telemetry
