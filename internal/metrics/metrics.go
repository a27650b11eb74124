// Package metrics exposes Prometheus collectors for the archivist stages
// and the preview server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for fetch and injection outcomes.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archivist_pages_fetched_total",
		Help: "Total pages fetched from the archive, labeled by outcome.",
	}, []string{"status"})

	assetsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archivist_assets_fetched_total",
		Help: "Total assets fetched from the archive, labeled by outcome.",
	}, []string{"status"})

	fetchBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "archivist_fetch_bytes_total",
		Help: "Total bytes downloaded from the archive.",
	})

	fetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "archivist_fetch_duration_seconds",
		Help:    "Histogram of archive fetch latencies.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	editsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archivist_edits_applied_total",
		Help: "Total page edits applied, labeled by edit name.",
	}, []string{"edit"})

	blocksInjectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archivist_blocks_injected_total",
		Help: "Total content blocks spliced into pages, labeled by outcome.",
	}, []string{"status"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archivist_http_requests_total",
		Help: "Total preview server requests, labeled by method and code.",
	}, []string{"method", "code"})

	httpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "archivist_http_request_duration_seconds",
		Help:    "Histogram of preview server latencies, labeled by method and route.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "route"})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePageFetch records one page fetch outcome.
func ObservePageFetch(status string, bytes int, duration time.Duration) {
	pagesFetchedTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		fetchBytesTotal.Add(float64(bytes))
	}
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveAssetFetch records one asset fetch outcome.
func ObserveAssetFetch(status string, bytes int, duration time.Duration) {
	assetsFetchedTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		fetchBytesTotal.Add(float64(bytes))
	}
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveEdits adds n applications of one named edit.
func ObserveEdits(edit string, n int) {
	if n > 0 {
		editsAppliedTotal.WithLabelValues(edit).Add(float64(n))
	}
}

// ObserveBlockInjection records one content block splice outcome.
func ObserveBlockInjection(status string) {
	blocksInjectedTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest records one preview server request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
