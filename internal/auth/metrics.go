// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeOK labels operations that completed without error.
const OutcomeOK = "ok"

// outcomeError labels failures that carry no oops code.
const outcomeError = "error"

// OperationsTotal counts use case invocations by operation and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var OperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hireline_auth_operations_total",
		Help: "Total number of identity operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// HashDuration observes password hashing and comparison latency.
// Use RegisterMetrics to register this with a Prometheus registry.
var HashDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "hireline_auth_hash_duration_seconds",
		Help:    "Password hash and compare duration in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"operation"},
)

// OTPIssued counts issued one-time passcodes by purpose.
var OTPIssued = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hireline_otp_issued_total",
		Help: "Total number of one-time passcodes issued",
	},
	[]string{"purpose"},
)

// OTPVerifications counts verification attempts by purpose and outcome.
var OTPVerifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hireline_otp_verifications_total",
		Help: "Total number of one-time passcode verifications by outcome",
	},
	[]string{"purpose", "outcome"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(OperationsTotal)
	reg.MustRegister(HashDuration)
	reg.MustRegister(OTPIssued)
	reg.MustRegister(OTPVerifications)
}

// outcome maps an error to a metric label.
func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := Code(err); code != "" {
		return code
	}
	return outcomeError
}

func recordOperation(operation string, err error) {
	OperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func observeHashDuration(operation string, d time.Duration) {
	HashDuration.WithLabelValues(operation).Observe(d.Seconds())
}
