// Package api serves the optional read-only HTTP status surface: health, the
// current run snapshot, and Prometheus metrics.
package api
