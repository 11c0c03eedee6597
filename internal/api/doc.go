// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/runs to trigger a polling run (webhook secret required).
//   - GET /v1/runs/last for the most recent run summary.
//   - POST /v1/notifications/test to send a test email.
package api
