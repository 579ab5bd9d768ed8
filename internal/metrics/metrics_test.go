package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/postrelay/internal/relay"
)

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	m.ObserveRun(relay.Run{Status: relay.RunStatusDelivered, StartedAt: start, FinishedAt: start.Add(2 * time.Second)})
	m.ObserveRun(relay.Run{Status: relay.RunStatusDelivered, StartedAt: start, FinishedAt: start.Add(time.Second)})
	m.ObserveRun(relay.Run{Status: relay.RunStatusFailed, ErrorKind: "no_content", StartedAt: start, FinishedAt: start})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("delivered", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed", "no_content")))

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "postrelay_run_duration_seconds" {
			continue
		}
		h := f.GetMetric()[0].GetHistogram()
		assert.EqualValues(t, 3, h.GetSampleCount())
		assert.InDelta(t, 3.0, h.GetSampleSum(), 0.001)
	}
}

func TestObserveTriggerAndDepth(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveTrigger(relay.TriggerHTTP, true)
	m.ObserveTrigger(relay.TriggerHTTP, false)
	m.ObserveTrigger(relay.TriggerHTTP, false)
	m.ObserveQueueChange(1)
	m.ObserveQueueChange(1)
	m.ObserveQueueChange(1)
	m.ObserveQueueChange(-1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TriggersTotal.WithLabelValues("http", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TriggersTotal.WithLabelValues("http", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueDepth))
}

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveQueueChange(0)
	m.ObserveTrigger(relay.TriggerCLI, true)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "postrelay_queue_depth")
	assert.Contains(t, names, "postrelay_triggers_total")
}
