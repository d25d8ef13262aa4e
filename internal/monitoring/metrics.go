// Package monitoring registers the Prometheus metrics exposed on
// /metrics.  Counters cover the booking funnel and its failure modes so
// an oversell rejection or a silent run of notification failures is
// visible without log spelunking.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	settlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_settlements_total",
			Help: "Payment confirmation attempts by outcome",
		},
		[]string{"outcome"},
	)

	oversellRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_oversell_rejections_total",
			Help: "Settlements rejected by the locked availability check",
		},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_notifications_total",
			Help: "Ticket delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	gatewayLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_seconds",
			Help:    "Latency of payment gateway order creation",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)
)

// ReservationOutcome records one reservation attempt. Outcomes:
// "created", "validation_error", "insufficient_stock", "gateway_error",
// "error".
func ReservationOutcome(outcome string) { reservations.WithLabelValues(outcome).Inc() }

// SettlementOutcome records one confirmation attempt. Outcomes:
// "settled", "replayed", "verification_failed", "insufficient_stock",
// "error".
func SettlementOutcome(outcome string) { settlements.WithLabelValues(outcome).Inc() }

// OversellRejected counts a settlement aborted by the locked stock check.
func OversellRejected() { oversellRejections.Inc() }

// NotificationDelivered counts a successful ticket delivery.
func NotificationDelivered() { notifications.WithLabelValues("delivered").Inc() }

// NotificationFailed counts a failed ticket delivery attempt.
func NotificationFailed() { notifications.WithLabelValues("failed").Inc() }

// ObserveGatewayLatency records one CreateOrder round trip.
func ObserveGatewayLatency(seconds float64) { gatewayLatency.Observe(seconds) }
