// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Greatwyrm Contributors

package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics contains the Prometheus metrics for Greatwyrm.
type Metrics struct {
	LoginsTotal      *prometheus.CounterVec
	TokenChecksTotal *prometheus.CounterVec
}

// Login outcome labels.
const (
	OutcomeAuthorized   = "authorized"
	OutcomeAlreadyValid = "already_valid"
	OutcomeUnauthorized = "unauthorized"
	OutcomeFailure      = "failure"
)

// Token check outcome labels.
const (
	OutcomeValid    = "valid"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// NewMetrics creates and registers the Greatwyrm metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greatwyrm_logins_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TokenChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greatwyrm_token_checks_total",
				Help: "Total number of session token validations by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.LoginsTotal)
	reg.MustRegister(m.TokenChecksTotal)

	return m
}

// RecordLogin increments the login counter for an outcome.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenCheck increments the token check counter for an outcome.
func (m *Metrics) RecordTokenCheck(outcome string) {
	if m == nil {
		return
	}
	m.TokenChecksTotal.WithLabelValues(outcome).Inc()
}
