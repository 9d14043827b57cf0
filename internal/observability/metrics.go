// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login results.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Session events.
const (
	SessionIssued   = "issued"
	SessionRotated  = "rotated"
	SessionRevoked  = "revoked"
	SessionRejected = "rejected"
)

// Metrics holds the application metrics. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	Logins       *prometheus.CounterVec
	Sessions     *prometheus.CounterVec
}

// NewMetrics creates the application metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanri_http_requests_total",
				Help: "Total number of API requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kanri_http_request_duration_seconds",
				Help:    "API request latency by route and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanri_auth_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		Sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanri_auth_sessions_total",
				Help: "Total number of refresh session events",
			},
			[]string{"event"},
		),
	}

	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.Logins, m.Sessions)
	return m
}

// ObserveRequest records one finished API request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// RecordLogin counts a login attempt.
func (m *Metrics) RecordLogin(ok bool) {
	if m == nil {
		return
	}
	result := LoginFailure
	if ok {
		result = LoginSuccess
	}
	m.Logins.WithLabelValues(result).Inc()
}

// RecordSession counts a refresh session event.
func (m *Metrics) RecordSession(event string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(event).Inc()
}
