// Package internaldefs holds the shared metric name and help-text catalog
// used by the Prometheus and OpenTelemetry exporters. It exists so both
// exporters render identical metric names for the same counters.
package internaldefs
