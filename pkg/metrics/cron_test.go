package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("waiting_period", 2*time.Second, nil)
	m.ObserveRun("waiting_period", time.Second, errors.New("db down"))
	m.ObserveRun("", time.Millisecond, nil)
	m.CycleSkipped()

	families, err := reg.Gather()
	require.NoError(t, err)

	runs := family(t, families, "pataamiga_cron_job_runs_total")
	assert.Equal(t, 1.0, counterWith(runs, map[string]string{"job": "waiting_period", "outcome": OutcomeSuccess}))
	assert.Equal(t, 1.0, counterWith(runs, map[string]string{"job": "waiting_period", "outcome": OutcomeFailure}))
	assert.Equal(t, 1.0, counterWith(runs, map[string]string{"job": "unknown", "outcome": OutcomeSuccess}))

	durations := family(t, families, "pataamiga_cron_job_duration_seconds")
	for _, metric := range durations.GetMetric() {
		if hasLabels(metric, map[string]string{"job": "waiting_period"}) {
			assert.EqualValues(t, 2, metric.GetHistogram().GetSampleCount())
			assert.InDelta(t, 3.0, metric.GetHistogram().GetSampleSum(), 0.001)
		}
	}

	last := family(t, families, "pataamiga_cron_job_last_success_timestamp_seconds")
	require.NotEmpty(t, last.GetMetric())
	assert.Greater(t, last.GetMetric()[0].GetGauge().GetValue(), 0.0)

	skipped := family(t, families, "pataamiga_cron_cycles_skipped_total")
	assert.Equal(t, 1.0, skipped.GetMetric()[0].GetCounter().GetValue())
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	var m *CronJobMetrics
	assert.NotPanics(t, func() {
		m.ObserveRun("retention", time.Second, nil)
		m.CycleSkipped()
	})
}

func family(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not gathered", name)
	return nil
}

func counterWith(mf *dto.MetricFamily, labels map[string]string) float64 {
	for _, metric := range mf.GetMetric() {
		if hasLabels(metric, labels) {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func hasLabels(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
