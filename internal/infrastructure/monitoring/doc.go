// Package monitoring provides Prometheus metrics for the tab-session core:
// HTTP traffic, tab lifecycle counters, mutation throughput and queue depth,
// and WebSocket connection counts.
package monitoring
