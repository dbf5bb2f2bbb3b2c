// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuex_bookings_created_total",
			Help: "Bookings created, by initial status",
		},
		[]string{"status"},
	)

	BookingOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuex_booking_outcomes_total",
			Help: "Booking lifecycle outcomes (confirmed, cancelled, expired, rejected)",
		},
		[]string{"outcome"},
	)

	PaymentVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuex_payment_verifications_total",
			Help: "Payment proof verifications, by result",
		},
		[]string{"result"},
	)

	SettlementTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuex_settlement_transitions_total",
			Help: "Settlement status changes, by target status",
		},
		[]string{"status"},
	)

	ExpiredBySweep = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venuex_bookings_expired_by_sweep_total",
			Help: "Pending bookings expired by the background sweeper",
		},
	)

	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venuex_publish_failures_total",
			Help: "Failed event publications, by sink",
		},
		[]string{"sink"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venuex_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Middleware records request latency per matched route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			httpDuration.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
