package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "salesdash"

// Recorder holds the ETL and dashboard metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	rowsNormalized *prometheus.CounterVec
	rowsSynced     *prometheus.CounterVec
	geocode        *prometheus.CounterVec
	storeReads     *prometheus.CounterVec
	chats          *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "etl_runs_total",
			Help:      "ETL runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "etl_run_duration_seconds",
			Help:      "Duration of ETL runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		rowsNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalized_rows_total",
			Help:      "Export rows by normalization result.",
		}, []string{"result"}),
		rowsSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_rows_total",
			Help:      "Rows handled by store sync, by table and action.",
		}, []string{"table", "action"}),
		geocode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_lookups_total",
			Help:      "Postal code lookups by outcome.",
		}, []string{"outcome"}),
		storeReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_reads_total",
			Help:      "Dashboard store reads by outcome.",
		}, []string{"outcome"}),
		chats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oraculo_questions_total",
			Help:      "Chat questions by outcome.",
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(
		r.runs, r.runDuration, r.rowsNormalized, r.rowsSynced, r.geocode, r.storeReads, r.chats,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveRun(outcome string, d time.Duration) {
	r.runs.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(d.Seconds())
}

func (r *Recorder) AddNormalized(result string, n int) {
	r.rowsNormalized.WithLabelValues(result).Add(float64(n))
}

func (r *Recorder) AddSynced(table, action string, n int) {
	r.rowsSynced.WithLabelValues(table, action).Add(float64(n))
}

func (r *Recorder) AddGeocode(outcome string, n int) {
	r.geocode.WithLabelValues(outcome).Add(float64(n))
}

func (r *Recorder) StoreRead(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.storeReads.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Question(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.chats.WithLabelValues(outcome).Inc()
}
