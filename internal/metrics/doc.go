// Package metrics exports workflow counters and latencies for Prometheus.
//
// storyloom is a short-lived CLI, so metrics are not served over HTTP. A run
// flushes them to a node-exporter textfile and, when configured, adds them to
// a Pushgateway group keyed by host and pid.
package metrics
