package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records reservation and settlement activity.
type OrderMetrics struct {
	reservations         *prometheus.CounterVec
	reservationConflicts prometheus.Counter
	paymentsConfirmed    *prometheus.CounterVec
	settlementDuration   prometheus.Histogram
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drum_reservations_total",
		Help: "Reservation attempts by outcome.",
	}, []string{"outcome"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drum_reservation_conflicts_total",
		Help: "Reservations that lost a concurrent race after passing pre-check.",
	})
	confirmed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Confirmed payment attempts by channel.",
	}, []string{"channel"})
	settlement := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_apply_duration_seconds",
		Help:    "Duration of settlement applications in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(reservations, conflicts, confirmed, settlement)
	return &OrderMetrics{
		reservations:         reservations,
		reservationConflicts: conflicts,
		paymentsConfirmed:    confirmed,
		settlementDuration:   settlement,
	}
}

// IncReservation counts a reservation attempt with the given outcome label.
func (m *OrderMetrics) IncReservation(outcome string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncReservationConflict counts a lost concurrent reservation race.
func (m *OrderMetrics) IncReservationConflict() {
	if m == nil || m.reservationConflicts == nil {
		return
	}
	m.reservationConflicts.Inc()
}

// IncPaymentConfirmed counts a confirmed attempt for the named channel.
func (m *OrderMetrics) IncPaymentConfirmed(channel string) {
	if m == nil || m.paymentsConfirmed == nil {
		return
	}
	m.paymentsConfirmed.WithLabelValues(normalizeLabel(channel)).Inc()
}

// ObserveSettlement records the duration of one settlement application.
func (m *OrderMetrics) ObserveSettlement(duration time.Duration) {
	if m == nil || m.settlementDuration == nil {
		return
	}
	m.settlementDuration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
