package metrics

import "github.com/prometheus/client_golang/prometheus"

// PayoutMetrics tracks release outcomes, escalations and reclaimed claims.
type PayoutMetrics struct {
	releases    *prometheus.CounterVec
	escalations *prometheus.CounterVec
	reclaimed   prometheus.Counter
}

// NewPayoutMetrics registers the payout metrics on the provided registerer.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	releases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "release_total",
		Help:      "Payout release attempts by outcome and reason.",
	}, []string{"outcome", "reason"})
	escalations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "escalations_total",
		Help:      "Stuck payout escalations by delivery channel.",
	}, []string{"channel"})
	reclaimed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reclaimed_total",
		Help:      "Payouts returned to HELD after an abandoned release claim.",
	})
	reg.MustRegister(releases, escalations, reclaimed)
	return &PayoutMetrics{
		releases:    releases,
		escalations: escalations,
		reclaimed:   reclaimed,
	}
}

// ObserveRelease counts a single release result.
func (p *PayoutMetrics) ObserveRelease(outcome, reason string) {
	if p == nil || p.releases == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	p.releases.WithLabelValues(normalizeLabel(outcome), reason).Inc()
}

// IncEscalation counts an escalation delivered through channel (log, in_app, email).
func (p *PayoutMetrics) IncEscalation(channel string) {
	if p == nil || p.escalations == nil {
		return
	}
	p.escalations.WithLabelValues(normalizeLabel(channel)).Inc()
}

// AddReclaimed counts payouts returned from RELEASING to HELD.
func (p *PayoutMetrics) AddReclaimed(n int) {
	if p == nil || p.reclaimed == nil || n <= 0 {
		return
	}
	p.reclaimed.Add(float64(n))
}
