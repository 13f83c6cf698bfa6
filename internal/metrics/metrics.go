// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/wiki-crawler/internal/crawler"
)

var (
	crawlerPagesTotal          *prometheus.CounterVec
	crawlerBytesTotal          *prometheus.CounterVec
	crawlerFetchAttemptsTotal  *prometheus.CounterVec
	crawlerFrontierSize        *prometheus.GaugeVec
	crawlerActiveWorkers       *prometheus.GaugeVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of paths settled, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of body bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerFetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_attempts_total",
				Help: "Total number of fetch attempts, labeled by site and result.",
			},
			[]string{"site", "result"},
		)

		crawlerFrontierSize = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crawler_frontier_size",
				Help: "Number of paths waiting in the frontier.",
			},
			[]string{"site"},
		)

		crawlerActiveWorkers = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of workers currently fetching a page.",
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Observer implements crawler.Observer for one site.
type Observer struct {
	site string
}

// NewObserver initializes the collectors and returns an Observer labeled with
// the hostname of rootURL.
func NewObserver(rootURL string) *Observer {
	Init()
	return &Observer{site: SanitizeSite(rootURL)}
}

// ObserveOutcome counts a settled path and the bytes fetched for it.
func (o *Observer) ObserveOutcome(outcome crawler.Outcome, bytesFetched int) {
	crawlerPagesTotal.WithLabelValues(o.site, string(outcome)).Inc()
	if bytesFetched > 0 {
		crawlerBytesTotal.WithLabelValues(o.site).Add(float64(bytesFetched))
	}
}

// ObserveFetchAttempt counts one fetch attempt as success or error.
func (o *Observer) ObserveFetchAttempt(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	crawlerFetchAttemptsTotal.WithLabelValues(o.site, result).Inc()
}

// SetFrontierSize records the current frontier length.
func (o *Observer) SetFrontierSize(n int) {
	crawlerFrontierSize.WithLabelValues(o.site).Set(float64(n))
}

// SetActiveWorkers records how many workers are busy.
func (o *Observer) SetActiveWorkers(n int) {
	crawlerActiveWorkers.WithLabelValues(o.site).Set(float64(n))
}
