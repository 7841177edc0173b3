// Package observability provides structured logging, Prometheus
// metrics, and graceful shutdown for the Pulse engine process.
package observability
