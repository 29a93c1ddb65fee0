// The metrics package exposes Prometheus metrics about ranking runs and
// community synthesis. A nil *Registry is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Registry holds all metrics for the application
type Registry struct {
	registry *prometheus.Registry

	// Ranking Metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	RunRounds   *prometheus.GaugeVec
	RankedNodes *prometheus.GaugeVec

	// Synthesis Metrics
	SynthesizedEdgesTotal *prometheus.CounterVec
	JointNodesTotal       prometheus.Counter
}

// NewRegistry() returns a Registry with all metrics registered on a fresh
// prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initRankingMetrics()
	r.initSynthesisMetrics()
	return r
}

// Prometheus() returns the underlying registry, to be served or gathered.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Registry) initRankingMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sybilrank_runs_total",
			Help: "Total number of ranking runs",
		},
		[]string{"algorithm", "status"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sybilrank_run_duration_seconds",
			Help:    "Ranking run duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"algorithm"},
	)

	r.RunRounds = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sybilrank_run_rounds",
			Help: "Number of propagation rounds of the last successful run",
		},
		[]string{"algorithm"},
	)

	r.RankedNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sybilrank_nodes",
			Help: "Number of nodes by rank status after the last successful run",
		},
		[]string{"status"},
	)
}

func (r *Registry) initSynthesisMetrics() {
	r.SynthesizedEdgesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sybilrank_synthesized_edges_total",
			Help: "Total number of edges added by community synthesis",
		},
		[]string{"operation"},
	)

	r.JointNodesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sybilrank_joint_nodes_total",
			Help: "Total number of joint nodes injected",
		},
	)
}

// ObserveRun() records the outcome of a ranking run.
func (r *Registry) ObserveRun(algorithm string, rounds int, duration time.Duration, err error) {
	if r == nil {
		return
	}

	if err != nil {
		r.RunsTotal.WithLabelValues(algorithm, StatusError).Inc()
		return
	}

	r.RunsTotal.WithLabelValues(algorithm, StatusSuccess).Inc()
	r.RunDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	r.RunRounds.WithLabelValues(algorithm).Set(float64(rounds))
}

// SetNodes() sets the number of nodes with the specified rank status.
func (r *Registry) SetNodes(status string, count int) {
	if r == nil {
		return
	}
	r.RankedNodes.WithLabelValues(status).Set(float64(count))
}

// AddSynthesizedEdges() records the edges added by a synthesis operation.
func (r *Registry) AddSynthesizedEdges(operation string, count int) {
	if r == nil {
		return
	}
	r.SynthesizedEdgesTotal.WithLabelValues(operation).Add(float64(count))
}

// AddJointNodes() records the joint nodes injected.
func (r *Registry) AddJointNodes(count int) {
	if r == nil {
		return
	}
	r.JointNodesTotal.Add(float64(count))
}
