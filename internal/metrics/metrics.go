// Package metrics exposes run and trigger counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jdholdren/postrelay/internal/relay"
	"github.com/jdholdren/postrelay/internal/worker"
)

const namespace = "postrelay"

// Metrics holds every collector of the process.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDurationSeconds prometheus.Histogram
	TriggersTotal      *prometheus.CounterVec
	QueueDepth         prometheus.Gauge
}

var (
	_ relay.Observer  = (*Metrics)(nil)
	_ worker.Observer = (*Metrics)(nil)
)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Finished relay runs by outcome",
			},
			[]string{"status", "error_kind"},
		),
		RunDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of relay runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~2min
			},
		),
		TriggersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "triggers_total",
				Help:      "Run triggers by source and admission",
			},
			[]string{"source", "accepted"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Runs in flight, running plus pending",
			},
		),
	}
}

func (m *Metrics) ObserveRun(run relay.Run) {
	m.RunsTotal.WithLabelValues(string(run.Status), run.ErrorKind).Inc()
	if !run.FinishedAt.IsZero() {
		m.RunDurationSeconds.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	}
}

func (m *Metrics) ObserveTrigger(source string, accepted bool) {
	m.TriggersTotal.WithLabelValues(source, strconv.FormatBool(accepted)).Inc()
}

func (m *Metrics) ObserveQueueChange(delta int) {
	m.QueueDepth.Add(float64(delta))
}
