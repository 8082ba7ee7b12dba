// Package observability provides structured logging and metrics
// for the entitlement API.
//
// This package implements:
//   - Structured logging (zap-based), JSON in production and console in development
//   - Prometheus metrics for key-set fetches, token verification,
//     payment provider calls and entitlement results
//
// Every component receives its logger and metrics by injection; there is
// no package-level state besides what the caller registers.
package observability
