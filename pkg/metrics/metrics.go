// Package metrics exposes prometheus instrumentation for evaluations.
package metrics

import (
	"strings"
	"time"

	"github.com/mchmarny/healthscore/pkg/result"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ModeStrict  = "strict"
	ModeLenient = "lenient"

	StatusOK    = "ok"
	StatusError = "error"

	KindMissing     = "missing"
	KindThreshold   = "threshold"
	KindMagnitude   = "magnitude"
	KindAggregation = "aggregation"
	KindPropagated  = "propagated"
	KindOther       = "other"
)

// Collector records evaluation metrics into a registry.
type Collector struct {
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	nodeErrors  *prometheus.CounterVec
}

// Default is registered with the global prometheus registry.
var Default = New(prometheus.DefaultRegisterer)

// New creates a collector and registers it with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthscore_evaluations_total",
				Help: "Total number of hierarchy evaluations",
			},
			[]string{"mode", "status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "healthscore_evaluation_duration_seconds",
				Help:    "Hierarchy evaluation latency in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"mode"},
		),
		nodeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthscore_node_errors_total",
				Help: "Total number of node outcomes that ended in error",
			},
			[]string{"kind"},
		),
	}
}

// Observe records one evaluation. A nil result counts as a failed call.
func (c *Collector) Observe(res *result.Hierarchy, d time.Duration, strict bool) {
	if c == nil {
		return
	}
	mode := ModeLenient
	if strict {
		mode = ModeStrict
	}

	status := StatusOK
	if !res.Score().OK() {
		status = StatusError
	}

	c.evaluations.WithLabelValues(mode, status).Inc()
	c.duration.WithLabelValues(mode).Observe(d.Seconds())

	for _, e := range res.Errors() {
		c.nodeErrors.WithLabelValues(Classify(e.Message)).Inc()
	}
}

// Classify maps a node error message to a bounded label value.
func Classify(msg string) string {
	switch {
	case strings.Contains(msg, "(via "):
		return KindPropagated
	case strings.HasPrefix(msg, "missing value"):
		return KindMissing
	case strings.HasPrefix(msg, "no thresholds"):
		return KindThreshold
	case strings.Contains(msg, "must not be negative"):
		return KindMagnitude
	case strings.HasSuffix(msg, "children failed"),
		strings.HasSuffix(msg, "zero total weight"),
		strings.HasSuffix(msg, "no children to aggregate"):
		return KindAggregation
	default:
		return KindOther
	}
}
