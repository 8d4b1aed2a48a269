// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics contains custom Prometheus metrics for Harborlight.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AuthEventsTotal     *prometheus.CounterVec
	MailDeliveriesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers custom Harborlight metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harborlight_http_requests_total",
				Help: "Total number of API requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harborlight_http_request_duration_seconds",
				Help:    "API request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harborlight_auth_events_total",
				Help: "Total number of credential events by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		MailDeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harborlight_mail_deliveries_total",
				Help: "Total number of transactional email deliveries by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.HTTPRequestsTotal)
	reg.MustRegister(m.HTTPRequestDuration)
	reg.MustRegister(m.AuthEventsTotal)
	reg.MustRegister(m.MailDeliveriesTotal)

	return m
}

// ObserveRequest records one finished API request. A nil receiver is a no-op.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordAuthEvent counts a credential event such as login or password_reset.
func (m *Metrics) RecordAuthEvent(event string, success bool) {
	if m == nil {
		return
	}
	m.AuthEventsTotal.WithLabelValues(event, outcome(success)).Inc()
}

// RecordMailDelivery counts a transactional email attempt.
func (m *Metrics) RecordMailDelivery(success bool) {
	if m == nil {
		return
	}
	m.MailDeliveriesTotal.WithLabelValues(outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
