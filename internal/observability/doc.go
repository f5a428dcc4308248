// Package observability provides logging, event logging, metrics, alerting
// and notification sinks for phaseops. Settled tasks and finished cycles are
// appended to a JSON Lines (JSONL) event log from which historical metrics
// and alerts are derived on demand; live counters are exported to
// Prometheus.
package observability
