// Package metrics provides Prometheus metrics for the icetime service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fortuna/icetime/internal/hockey"
)

// Game outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeNoData  = "no_data"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Recorder holds every metric the service exports.
type Recorder struct {
	registry *prometheus.Registry

	gamesReconciled *prometheus.CounterVec
	gameDuration    *prometheus.HistogramVec
	diagnostics     *prometheus.CounterVec
	eventsEnriched  prometheus.Counter
	upstreamFetches *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	backfillGames   *prometheus.CounterVec
	backfillActive  prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewRecorder registers the metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		gamesReconciled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icetime", Name: "games_reconciled_total",
			Help: "Games processed by the ingest pipeline, by outcome and shift source.",
		}, []string{"outcome", "source"}),
		gameDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "icetime", Name: "game_duration_seconds",
			Help:    "Wall time to fetch, reconcile and persist one game.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
		diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icetime", Name: "diagnostics_total",
			Help: "Data anomalies and lookup misses attached to results.",
		}, []string{"kind"}),
		eventsEnriched: f.NewCounter(prometheus.CounterOpts{
			Namespace: "icetime", Name: "events_enriched_total",
			Help: "Play-by-play events enriched with on-ice sets.",
		}),
		upstreamFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icetime", Name: "upstream_fetches_total",
			Help: "Upstream document fetches by kind and result.",
		}, []string{"kind", "result"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icetime", Name: "cache_lookups_total",
			Help: "Raw document cache lookups.",
		}, []string{"kind", "result"}),
		backfillGames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icetime", Name: "backfill_games_total",
			Help: "Games processed by backfill jobs, by outcome.",
		}, []string{"outcome"}),
		backfillActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "icetime", Name: "backfill_active_jobs",
			Help: "Backfill jobs currently running.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icetime", Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "icetime", Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveGame records one pipeline run.
func (r *Recorder) ObserveGame(outcome, source string, took time.Duration) {
	r.gamesReconciled.WithLabelValues(outcome, source).Inc()
	if outcome == OutcomeOK {
		r.gameDuration.WithLabelValues(source).Observe(took.Seconds())
	}
}

// ObserveResult counts events and diagnostics of a reconciled game.
func (r *Recorder) ObserveResult(events int, diags []hockey.Diagnostic) {
	r.eventsEnriched.Add(float64(events))
	for _, d := range diags {
		r.diagnostics.WithLabelValues(string(d.Kind)).Inc()
	}
}

// ObserveFetch records an upstream fetch.
func (r *Recorder) ObserveFetch(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.upstreamFetches.WithLabelValues(kind, result).Inc()
}

// ObserveCache records a cache hit or miss.
func (r *Recorder) ObserveCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveBackfillGame records one game of a backfill job.
func (r *Recorder) ObserveBackfillGame(outcome string) {
	r.backfillGames.WithLabelValues(outcome).Inc()
}

// BackfillStarted marks a job as running.
func (r *Recorder) BackfillStarted() { r.backfillActive.Inc() }

// BackfillFinished marks a running job as done.
func (r *Recorder) BackfillFinished() { r.backfillActive.Dec() }

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(method, route string, code int, took time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}
