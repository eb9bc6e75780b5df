package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Total booking attempts by outcome",
		},
		[]string{"event_id", "outcome"},
	)

	refundDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refund_decisions_total",
			Help: "Total processed refund requests by decision",
		},
		[]string{"decision"},
	)

	ticketsSold = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickets_sold_total",
			Help: "Current sold ticket count per event",
		},
		[]string{"event_id"},
	)

	activeHolds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_holds_total",
			Help: "Current unconfirmed seat holds per event",
		},
		[]string{"event_id"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_duration_seconds",
			Help:    "Duration of payment gateway calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation", "status"},
	)
)

// Booking outcomes tracked by TrackBooking.
const (
	OutcomeConfirmed     = "confirmed"
	OutcomeSoldOut       = "sold_out"
	OutcomePaymentFailed = "payment_failed"
	OutcomeRejected      = "rejected"
)

type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) TrackBooking(eventID, outcome string) {
	bookingOperations.WithLabelValues(eventID, outcome).Inc()
}

func (m *Monitor) TrackRefundDecision(decision string) {
	refundDecisions.WithLabelValues(decision).Inc()
}

func (m *Monitor) SetTicketsSold(eventID string, sold int) {
	ticketsSold.WithLabelValues(eventID).Set(float64(sold))
}

func (m *Monitor) SetActiveHolds(eventID string, held int) {
	activeHolds.WithLabelValues(eventID).Set(float64(held))
}

func (m *Monitor) TrackGatewayCall(operation, status string, duration time.Duration) {
	gatewayDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}
