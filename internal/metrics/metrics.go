// Package metrics exposes Prometheus collectors for the container poller.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pollerItemsTotal             *prometheus.CounterVec
	pollerScrapeAttemptsTotal    *prometheus.CounterVec
	pollerNotificationsTotal     *prometheus.CounterVec
	pollerInflightItems          prometheus.Gauge
	pollerRunDurationSeconds     prometheus.Histogram
	pollerRunsTotal              *prometheus.CounterVec
	pollerRateLimitDelaysSeconds *prometheus.HistogramVec
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pollerItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poller_items_total",
				Help: "Work items processed, labeled by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		)

		pollerScrapeAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poller_scrape_attempts_total",
				Help: "Provider scrape attempts, labeled by provider and result.",
			},
			[]string{"provider", "result"},
		)

		pollerNotificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poller_notifications_total",
				Help: "Milestone notifications, labeled by channel and result.",
			},
			[]string{"channel", "result"},
		)

		pollerInflightItems = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "poller_inflight_items",
				Help: "Number of work items currently being processed.",
			},
		)

		pollerRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "poller_run_duration_seconds",
				Help:    "Histogram of polling run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
			},
		)

		pollerRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poller_runs_total",
				Help: "Polling runs, labeled by result.",
			},
			[]string{"result"},
		)

		pollerRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poller_rate_limit_delays_seconds",
				Help:    "Histogram of per-provider rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItem counts one finished work item.
func ObserveItem(provider, outcome string) {
	if pollerItemsTotal == nil {
		return
	}
	if provider == "" {
		provider = "none"
	}
	pollerItemsTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveScrapeAttempt counts one provider call.
func ObserveScrapeAttempt(provider string, success bool) {
	if pollerScrapeAttemptsTotal == nil {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	pollerScrapeAttemptsTotal.WithLabelValues(provider, result).Inc()
}

// ObserveNotification counts one notification outcome (sent, failed, duplicate).
func ObserveNotification(channel, result string) {
	if pollerNotificationsTotal == nil {
		return
	}
	pollerNotificationsTotal.WithLabelValues(channel, result).Inc()
}

// IncInflight increments the in-flight items gauge.
func IncInflight() {
	if pollerInflightItems != nil {
		pollerInflightItems.Inc()
	}
}

// DecInflight decrements the in-flight items gauge.
func DecInflight() {
	if pollerInflightItems != nil {
		pollerInflightItems.Dec()
	}
}

// ObserveRun records a finished run.
func ObserveRun(result string, duration time.Duration) {
	if pollerRunDurationSeconds == nil {
		return
	}
	pollerRunDurationSeconds.Observe(duration.Seconds())
	pollerRunsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(provider string, duration time.Duration) {
	if pollerRateLimitDelaysSeconds == nil {
		return
	}
	pollerRateLimitDelaysSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
