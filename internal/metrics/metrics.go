// Package metrics counts replays, queries, and outcomes for a probe run.
//
// Metrics live in a private registry per Recorder so that concurrent probes
// and tests never collide on the global default registry. WriteTextfile
// emits the registry in the format read by node_exporter's textfile
// collector, which suits a batch job better than a scrape endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the probe metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	replays  *prometheus.CounterVec
	records  *prometheus.CounterVec
	queries  prometheus.Counter
	duration prometheus.Histogram
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		replays: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aliasprobe_replays_total",
			Help: "Oracle replays by result (ok or failure code)",
		}, []string{"result"}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aliasprobe_records_total",
			Help: "Sensitivity records by outcome",
		}, []string{"outcome"}),
		queries: f.NewCounter(prometheus.CounterOpts{
			Name: "aliasprobe_queries_total",
			Help: "Alias queries answered across all replays",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aliasprobe_replay_seconds",
			Help:    "Wall time of a single oracle replay",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
	}
}

// ObserveReplay records one finished replay.
func (r *Recorder) ObserveReplay(result string, queries int, d time.Duration) {
	if r == nil {
		return
	}
	r.replays.WithLabelValues(result).Inc()
	r.queries.Add(float64(queries))
	r.duration.Observe(d.Seconds())
}

// ObserveRecord records one sensitivity outcome.
func (r *Recorder) ObserveRecord(outcome string) {
	if r == nil {
		return
	}
	r.records.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes every metric to path in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
