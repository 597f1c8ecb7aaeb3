package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AccessMetrics counts level access workflow outcomes.
type AccessMetrics struct {
	requests      *prometheus.CounterVec
	reviews       *prometheus.CounterVec
	grants        *prometheus.CounterVec
	notifyFailure *prometheus.CounterVec
}

// NewAccessMetrics registers the workflow counters on reg. A nil registerer
// yields a no-op instance.
func NewAccessMetrics(reg prometheus.Registerer) *AccessMetrics {
	if reg == nil {
		return &AccessMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_requests_total",
		Help: "Level access requests by outcome.",
	}, []string{"outcome"})
	reviews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_reviews_total",
		Help: "Access request reviews by decision and outcome.",
	}, []string{"decision", "outcome"})
	grants := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_grants_total",
		Help: "Level access grants written, by reason.",
	}, []string{"reason"})
	notifyFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Notifications that could not be delivered, by type.",
	}, []string{"type"})
	reg.MustRegister(requests, reviews, grants, notifyFailure)
	return &AccessMetrics{
		requests:      requests,
		reviews:       reviews,
		grants:        grants,
		notifyFailure: notifyFailure,
	}
}

func (m *AccessMetrics) IncRequest(outcome string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *AccessMetrics) IncReview(decision, outcome string) {
	if m == nil || m.reviews == nil {
		return
	}
	m.reviews.WithLabelValues(normalizeLabel(decision), normalizeLabel(outcome)).Inc()
}

func (m *AccessMetrics) IncGrant(reason string) {
	if m == nil || m.grants == nil {
		return
	}
	m.grants.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *AccessMetrics) IncNotifyFailure(notifType string) {
	if m == nil || m.notifyFailure == nil {
		return
	}
	m.notifyFailure.WithLabelValues(normalizeLabel(notifType)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
