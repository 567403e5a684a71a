// Package api implements the HTTP REST API and WebSocket progress stream
// for the entity manager.
//
// This package provides:
//   - REST endpoints for analysis, single and bulk renames, areas,
//     naming overrides and rename history
//   - A WebSocket hub that streams apply results as they happen
//   - Prometheus metrics at /metrics
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Handlers are thin: they decode the request, call manager.Service or the
// override store, and encode the result. Every call that reaches the host
// registry fetches a fresh snapshot, so nothing is cached here.
//
// # Graceful Degradation
//
// The server runs without MQTT, InfluxDB or history storage. Missing
// components are reported as "disabled" by the health endpoint and the
// history endpoint answers 503.
package api
