// Package metrics records model call latency and analysis outcomes, both as
// rolling in-process percentiles and as prometheus series.
package metrics

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docrank"

// Recorder is safe for concurrent use. A nil *Recorder discards everything.
type Recorder struct {
	registry *prometheus.Registry
	calls    *prometheus.HistogramVec
	analyses *prometheus.CounterVec

	window time.Duration
	mu     sync.Mutex
	stats  map[string]*LatencyStats
}

// NewRecorder builds a recorder with its own registry. window bounds the
// in-process percentile samples.
func NewRecorder(window time.Duration) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_seconds",
			Help:      "Latency of embedding and rerank calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"op", "provider", "outcome"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Finished analyses by terminal status.",
		}, []string{"status"}),
		window: window,
		stats:  make(map[string]*LatencyStats),
	}
	r.registry.MustRegister(r.calls, r.analyses)
	return r
}

// ObserveCall records one model call under op ("embed" or "rerank").
func (r *Recorder) ObserveCall(op, provider string, d time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.calls.WithLabelValues(op, provider, outcome).Observe(d.Seconds())
	r.statsFor(op).Record(d, err != nil)
}

// AnalysisFinished counts one analysis reaching status.
func (r *Recorder) AnalysisFinished(status string) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(status).Inc()
}

// Snapshot returns latency aggregates keyed by op.
func (r *Recorder) Snapshot() map[string]LatencySnapshot {
	out := make(map[string]LatencySnapshot)
	if r == nil {
		return out
	}
	r.mu.Lock()
	ops := make([]string, 0, len(r.stats))
	for op := range r.stats {
		ops = append(ops, op)
	}
	r.mu.Unlock()
	sort.Strings(ops)
	for _, op := range ops {
		out[op] = r.statsFor(op).Snapshot()
	}
	return out
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry for additional collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) statsFor(op string) *LatencyStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[op]
	if !ok {
		s = NewLatencyStats(r.window)
		r.stats[op] = s
	}
	return s
}
