// Package metrics exposes the oracle's Prometheus instrumentation. It is
// a thin, side-effect-only layer above internal/oracle: the validation
// engine itself stays free of observability concerns (spec.md §5 treats
// admin/observability surfaces as orthogonal to the core state machine),
// and the gRPC service layer calls into this package after each submit,
// delete, and admin operation completes (rrdata lookups are not recorded).
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dnsscience/dnssecoracle/internal/oracle"
)

var (
	// SubmissionsTotal counts submit_rrset outcomes, labeled "accepted" or
	// by the oracle.Kind string of the rejection (spec.md §7).
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dnssecoracle_submissions_total", Help: "Total submit_rrset calls by outcome"},
		[]string{"outcome"},
	)

	// DeletionsTotal counts delete_rrset outcomes the same way.
	DeletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dnssecoracle_deletions_total", Help: "Total delete_rrset calls by outcome"},
		[]string{"outcome"},
	)

	// AdminMutationsTotal counts set_algorithm/set_digest/set_nsec3_digest
	// calls by operation and outcome.
	AdminMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dnssecoracle_admin_mutations_total", Help: "Total admin registry mutations by operation and outcome"},
		[]string{"operation", "outcome"},
	)

	// StoreSize tracks the number of entries held in the authenticated
	// store, anchor included.
	StoreSize = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "dnssecoracle_store_size", Help: "Number of (name, type) entries in the authenticated store"},
	)
)

func init() {
	prometheus.MustRegister(SubmissionsTotal, DeletionsTotal, AdminMutationsTotal, StoreSize)
}

// outcome maps a submit_rrset/delete_rrset result to its metric label: nil
// is "accepted", otherwise the oracle.Kind name, falling back to
// "unknown" for an error that didn't originate from the engine.
func outcome(err error) string {
	if err == nil {
		return "accepted"
	}
	var oe *oracle.Error
	if errors.As(err, &oe) {
		return oe.Kind.String()
	}
	return "unknown"
}

// RecordSubmission records one submit_rrset call.
func RecordSubmission(err error) {
	SubmissionsTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordDeletion records one delete_rrset call.
func RecordDeletion(err error) {
	DeletionsTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordAdminMutation records one admin registry mutation.
func RecordAdminMutation(operation string, err error) {
	AdminMutationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

// ObserveStoreSize refreshes the store-size gauge from a live engine.
func ObserveStoreSize(e *oracle.Engine) {
	StoreSize.Set(float64(e.StoreSize()))
}
