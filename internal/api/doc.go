// Package api hosts the status server that runs alongside a crawl. Routes:
//   - GET /healthz and /readyz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /status for the live crawl snapshot.
//   - GET /v1/crawls/{crawl_id}/outcomes and /summary for manifest queries,
//     when a manifest is configured.
package api
