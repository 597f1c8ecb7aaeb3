package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAccessMetrics(reg)

	m.IncRequest("created")
	m.IncRequest("created")
	m.IncRequest("duplicate_pending")
	m.IncReview("approved", "ok")
	m.IncGrant("approved_request")
	m.IncNotifyFailure("")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, mfs, "access_requests_total", map[string]string{"outcome": "created"}))
	assert.Equal(t, 1.0, counterValue(t, mfs, "access_requests_total", map[string]string{"outcome": "duplicate_pending"}))
	assert.Equal(t, 1.0, counterValue(t, mfs, "access_reviews_total", map[string]string{"decision": "approved", "outcome": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, mfs, "access_grants_total", map[string]string{"reason": "approved_request"}))
	assert.Equal(t, 1.0, counterValue(t, mfs, "notifications_failed_total", map[string]string{"type": "unknown"}))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *AccessMetrics
	m.IncRequest("created")
	m.IncReview("approved", "ok")

	NewAccessMetrics(nil).IncGrant("manual")
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchesLabels(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %q with labels %v not found", name, labels)
	return 0
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; ok && v == p.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
