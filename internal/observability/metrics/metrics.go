package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking engine.
type BookingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	slotComputeTime  prometheus.Histogram
	slotCacheTotal   *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "littleoak",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by operation and outcome",
		}, []string{"operation", "outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "littleoak",
			Subsystem: "booking",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions applied",
		}, []string{"to_status"}),
		slotComputeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "littleoak",
			Subsystem: "scheduling",
			Name:      "slot_compute_seconds",
			Help:      "Latency of slot computation (cache misses only)",
			Buckets:   prometheus.DefBuckets,
		}),
		slotCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "littleoak",
			Subsystem: "scheduling",
			Name:      "slot_cache_total",
			Help:      "Slot cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.slotComputeTime, m.slotCacheTotal)
	return m
}

// ObserveBooking records a booking-path attempt and its outcome.
func (m *BookingMetrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveTransition records an applied status transition.
func (m *BookingMetrics) ObserveTransition(toStatus string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(toStatus).Inc()
}

// ObserveSlotCompute records slot generation latency.
func (m *BookingMetrics) ObserveSlotCompute(seconds float64) {
	if m == nil {
		return
	}
	m.slotComputeTime.Observe(seconds)
}

// ObserveSlotCache records a cache hit or miss.
func (m *BookingMetrics) ObserveSlotCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.slotCacheTotal.WithLabelValues(result).Inc()
}
