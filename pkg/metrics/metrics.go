// Package metrics documents the Prometheus metrics exposed by the ingestion
// pipeline. Metrics are defined next to the code they instrument (nhlapi,
// ratelimit, pagination, storage, scraper) via promauto; this package holds
// the registry reference and the catalog.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registry used by the scraper. All metrics
// register automatically through promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the metrics below.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Catalog
//
// NHL API client (pkg/nhlapi):
//   - nhl_requests_total{endpoint, status} (Counter): requests by endpoint and HTTP status
//   - nhl_request_duration_seconds{endpoint} (Histogram): request duration
//   - nhl_errors_total{class} (Counter): errors by class (rate_limited, server, client)
//   - nhl_retries_total{error_class} (Counter): retry attempts
//   - nhl_retry_backoff_seconds{error_class} (Histogram): backoff durations
//   - nhl_retry_exhausted_total{error_class} (Counter): requests that ran out of attempts
//
// Scheduler (pkg/ratelimit):
//   - scheduler_queue_depth (Gauge): operations waiting for dispatch
//   - scheduler_dispatched_total (Counter): operations dispatched
//   - scheduler_wait_seconds (Histogram): time spent queued
//
// Collector (pkg/pagination):
//   - collector_pages_fetched_total (Counter): pages fetched
//   - collector_page_errors_total (Counter): failed pages that truncated a resource
//
// Storage (pkg/storage):
//   - storage_players_upserted_total{outcome} (Counter): documents written (inserted/modified)
//   - storage_errors_total{operation} (Counter): storage operation errors
//
// Orchestrator (pkg/scraper):
//   - scraper_players_processed_total (Counter): players fetched, reconciled, and batched
//   - scraper_players_skipped_total{reason} (Counter): skips (duplicate, fetch_failed, no_tenures)
//   - scraper_teams_completed_total (Counter): teams checkpointed
//   - scraper_teams_skipped_total (Counter): whole-team fetch failures
//   - scraper_batch_flushes_total (Counter): batch flushes
//
// Example queries:
//
//   # Upstream error rate
//   rate(nhl_errors_total[5m])
//
//   # P95 time an operation waits for the rate limiter
//   histogram_quantile(0.95, rate(scheduler_wait_seconds_bucket[5m]))
//
//   # Ingestion throughput
//   rate(scraper_players_processed_total[5m])
