// Package metrics provides Prometheus metrics for the attestation pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksReceivedTotal is a counter of ticks pulled from the feed.
	TicksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticks_received_total",
			Help: "Total number of price ticks received by workers",
		},
		[]string{"symbol"},
	)

	// TickParseFailuresTotal counts ticks whose price could not be parsed and were folded in as zero.
	TickParseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tick_parse_failures_total",
			Help: "Total number of ticks with an unparseable price",
		},
		[]string{"symbol"},
	)

	// WorkerRunsTotal is a counter of finished worker tasks.
	WorkerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Total number of worker task runs by outcome",
		},
		[]string{"status"},
	)

	// WorkerDuration is a histogram of worker task durations.
	WorkerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worker_duration_seconds",
			Help:    "Duration of a single worker collect/sign run",
			Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// ContributionsTotal is a counter of contributions seen by the aggregator.
	ContributionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contributions_total",
			Help: "Total number of contributions by verification status",
		},
		[]string{"status"},
	)

	// AggregationDuration is a histogram of aggregation durations.
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of the drain/verify/finalize phase",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// CacheWritesTotal is a counter of cache sink writes.
	CacheWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_writes_total",
			Help: "Total number of cache writes by backend and status",
		},
		[]string{"backend", "status"},
	)

	// FinalPrice is a gauge holding the last trusted aggregate.
	FinalPrice = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "final_price",
			Help: "Last trusted aggregate price",
		},
	)
)

var registerOnce sync.Once

// Init registers all metrics with the default Prometheus registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			TicksReceivedTotal,
			TickParseFailuresTotal,
			WorkerRunsTotal,
			WorkerDuration,
			ContributionsTotal,
			AggregationDuration,
			CacheWritesTotal,
			FinalPrice,
		)
	})
}

// ServeHTTP serves Prometheus metrics on the specified address and path.
func ServeHTTP(addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordTick records one received tick and whether its price parsed.
func RecordTick(symbol string, parsed bool) {
	TicksReceivedTotal.WithLabelValues(symbol).Inc()
	if !parsed {
		TickParseFailuresTotal.WithLabelValues(symbol).Inc()
	}
}

// RecordWorkerRun records a finished worker task.
func RecordWorkerRun(status string, duration time.Duration) {
	WorkerRunsTotal.WithLabelValues(status).Inc()
	WorkerDuration.Observe(duration.Seconds())
}

// RecordContribution records a contribution handled by the aggregator.
func RecordContribution(status string) {
	ContributionsTotal.WithLabelValues(status).Inc()
}

// RecordAggregation records an aggregation run.
func RecordAggregation(mode string, duration time.Duration) {
	AggregationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordCacheWrite records a cache write.
func RecordCacheWrite(backend string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	CacheWritesTotal.WithLabelValues(backend, status).Inc()
}

// RecordFinalPrice records the trusted aggregate.
func RecordFinalPrice(value float64) {
	FinalPrice.Set(value)
}
