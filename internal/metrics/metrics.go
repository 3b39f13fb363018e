package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "retail_stock"

type Metrics struct {
	Reservations       *prometheus.CounterVec
	ReservationSeconds prometheus.Histogram
	LockAcquires       *prometheus.CounterVec
	Movements          *prometheus.CounterVec
	ItemTransitions    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg yields
// unregistered collectors, which is what tests use.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reservations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome.",
		}, []string{"outcome"}),
		ReservationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_duration_seconds",
			Help:      "Wall time of a reservation including lock waits.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		LockAcquires: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_acquires_total",
			Help:      "SKU lock acquisition attempts by result.",
		}, []string{"result"}),
		Movements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_movements_total",
			Help:      "Inventory movements emitted by reason.",
		}, []string{"reason"}),
		ItemTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_item_transitions_total",
			Help:      "Order item status transitions by target status and result.",
		}, []string{"to", "result"}),
	}
}
