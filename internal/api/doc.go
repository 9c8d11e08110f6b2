// Package api hosts the HTTP server, middleware, and handlers. Routes:
//   - GET / for service info.
//   - GET /healthz, /health and /readyz for liveness and readiness checks.
//   - GET /metrics for Prometheus scraping.
//   - POST /search to run a search and download the results as CSV.
package api
