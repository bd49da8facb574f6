package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking core.
type BookingMetrics struct {
	admissionsTotal    *prometheus.CounterVec
	replaysTotal       prometheus.Counter
	slotComputeLatency prometheus.Histogram
	notificationsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		admissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Subsystem: "booking",
			Name:      "admissions_total",
			Help:      "Booking admission attempts by outcome",
		}, []string{"outcome"}),
		replaysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicops",
			Subsystem: "booking",
			Name:      "idempotent_replays_total",
			Help:      "Responses served from the idempotency ledger",
		}),
		slotComputeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicops",
			Subsystem: "booking",
			Name:      "slot_compute_seconds",
			Help:      "Latency of availability computation",
			Buckets:   prometheus.DefBuckets,
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Subsystem: "notify",
			Name:      "outbound_total",
			Help:      "Notification admissions by outcome",
		}, []string{"channel", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.admissionsTotal, m.replaysTotal, m.slotComputeLatency, m.notificationsTotal)
	return m
}

func (m *BookingMetrics) ObserveAdmission(outcome string) {
	if m == nil {
		return
	}
	m.admissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveReplay() {
	if m == nil {
		return
	}
	m.replaysTotal.Inc()
}

func (m *BookingMetrics) ObserveSlotCompute(seconds float64) {
	if m == nil {
		return
	}
	m.slotComputeLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveNotification(channel, outcome string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(channel, outcome).Inc()
}
