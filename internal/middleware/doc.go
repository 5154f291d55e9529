// Package middleware provides HTTP middleware for the operational endpoint.
//
// It includes:
//   - Request logging in W3C Extended Log Format through the logging package
//   - Prometheus request counters and latency histograms
//   - Configurable filtering for health checks
package middleware
