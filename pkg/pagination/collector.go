// Package pagination drains offset-paginated NHL stats reports into a single
// ordered slice. The stats API has no page-count header; the end of a
// resource is signalled by a page shorter than the requested limit.
package pagination

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for page collection.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_pages_fetched_total",
		Help: "Total pages fetched across all resources",
	})

	pageErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_page_errors_total",
		Help: "Total page fetches that failed and truncated a resource",
	})
)

// PageFunc fetches one page of a resource at the given offset. Implementations
// are expected to route the fetch through the rate-limited scheduler.
type PageFunc[T any] func(ctx context.Context, start, limit int) ([]T, error)

// DefaultPageSize is the largest page the stats API allows.
const DefaultPageSize = 100

// Collect fetches successive pages at increasing offsets until a short or
// empty page. A failed page stops pagination and returns whatever was already
// accumulated together with the page error, so one bad page truncates a
// single resource instead of aborting the caller. Callers that need to
// distinguish "truncated" from "failed outright" check err alongside the
// length of the result.
func Collect[T any](ctx context.Context, logger zerolog.Logger, fetch PageFunc[T], pageSize int) ([]T, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	start := time.Now()
	var items []T

	for offset := 0; ; offset += pageSize {
		page, err := fetch(ctx, offset, pageSize)
		if err != nil {
			pageErrorsTotal.Inc()
			logger.Warn().
				Err(err).
				Int("offset", offset).
				Int("collected", len(items)).
				Msg("Page fetch failed - returning partial results")
			return items, err
		}

		pagesFetchedTotal.Inc()
		items = append(items, page...)

		if len(page) < pageSize {
			break
		}
	}

	logger.Debug().
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Collection complete")

	return items, nil
}
