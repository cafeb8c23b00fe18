// Package metrics exposes the ledger's Prometheus instrumentation. As an
// embeddable library this never registers against the global default
// registry — callers pass in their own prometheus.Registry via New.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every counter/histogram this module emits.
type Metrics struct {
	TransactionsProcessed prometheus.Counter
	TransactionsRolledBack prometheus.Counter
	JournalAppends         prometheus.Counter
	JournalAppendDuration  prometheus.Histogram
	AuditRuns              prometheus.Counter
	AuditDiscrepancies     prometheus.Counter
	EncryptedSaveFailures  prometheus.Counter
	EncryptedLoadFailures  prometheus.Counter
}

// New registers every metric against reg and returns the bundle.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TransactionsProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "finledger_transactions_processed_total",
			Help: "Total number of transactions successfully applied to the ledger.",
		}),
		TransactionsRolledBack: f.NewCounter(prometheus.CounterOpts{
			Name: "finledger_transactions_rolled_back_total",
			Help: "Total number of transactions rolled back.",
		}),
		JournalAppends: f.NewCounter(prometheus.CounterOpts{
			Name: "finledger_journal_appends_total",
			Help: "Total number of entries appended to the journal.",
		}),
		JournalAppendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "finledger_journal_append_duration_seconds",
			Help:    "Time taken to append one entry to the journal.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10),
		}),
		AuditRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "finledger_audit_runs_total",
			Help: "Total number of audit passes run.",
		}),
		AuditDiscrepancies: f.NewCounter(prometheus.CounterOpts{
			Name: "finledger_audit_discrepancies_total",
			Help: "Total number of balance discrepancies found across all audit runs.",
		}),
		EncryptedSaveFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "finledger_encrypted_save_failures_total",
			Help: "Total number of failed encrypted journal saves.",
		}),
		EncryptedLoadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "finledger_encrypted_load_failures_total",
			Help: "Total number of failed encrypted journal loads (wrong password, tampered file).",
		}),
	}
}

// ObserveAudit records the outcome of one audit.Report.
func (m *Metrics) ObserveAudit(discrepancies int) {
	m.AuditRuns.Inc()
	m.AuditDiscrepancies.Add(float64(discrepancies))
}
