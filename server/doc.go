// Package server provides the HTTP front of artcache: a Gin engine served
// over HTTP/1.1 and h2c, wrapped in the net/http middleware stack from
// server/middleware and run as a component.Component.
//
// # Middleware
//
//   - Recovery: panics become a 500 UNKNOWN error envelope
//   - RequestID: X-Request-Id generation and propagation into the logger
//   - CORS: cross-origin headers and preflight answers
//   - BodySizeLimit: request body cap
//   - RequestLogger: one "ui" log line per request
//   - Telemetry: per-route spans and request metrics (Gin level)
//
// # Endpoints
//
//   - /health: aggregated component health
//   - /alive: liveness probe
//   - /info: build and version information
package server
