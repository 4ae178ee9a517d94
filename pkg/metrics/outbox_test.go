package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestOutboxMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.IncPublished("pet_registered")
	m.IncPublished("pet_registered")
	m.IncRetried("payout_requested")
	m.IncDeadLettered("referral_created", "max_attempts")
	m.ObserveBatch(40 * time.Millisecond)

	require.Equal(t, float64(2), testutil.ToFloat64(m.published.WithLabelValues("pet_registered")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.retried.WithLabelValues("payout_requested")))

	expected := `
# HELP pataamiga_outbox_dead_lettered_total Outbox events moved to the dead letter table.
# TYPE pataamiga_outbox_dead_lettered_total counter
pataamiga_outbox_dead_lettered_total{event_type="referral_created",reason="max_attempts"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "pataamiga_outbox_dead_lettered_total"))
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.IncPublished("x")
	m.ObserveBatch(time.Second)

	unregistered := NewOutboxMetrics(nil)
	unregistered.IncDeadLettered("x", "y")
}
