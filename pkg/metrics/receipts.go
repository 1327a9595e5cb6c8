package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReceiptMetrics records counters for receipt lifecycle activity.
type ReceiptMetrics struct {
	created      prometheus.Counter
	updated      prometheus.Counter
	deleted      prometheus.Counter
	voucherRetry prometheus.Counter
	ledgerDrift  *prometheus.CounterVec
}

// NewReceiptMetrics registers the receipt metrics on the provided registerer.
func NewReceiptMetrics(reg prometheus.Registerer) *ReceiptMetrics {
	if reg == nil {
		return &ReceiptMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipts_created_total",
		Help: "Receipts created.",
	})
	updated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipts_updated_total",
		Help: "Receipts updated.",
	})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipts_deleted_total",
		Help: "Receipts deleted.",
	})
	voucherRetry := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "voucher_mint_retries_total",
		Help: "Voucher mints retried after a sequence collision.",
	})
	ledgerDrift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_drift_detected_total",
		Help: "Client balances found out of sync with their ledger entries.",
	}, []string{"client_id"})
	reg.MustRegister(created, updated, deleted, voucherRetry, ledgerDrift)
	return &ReceiptMetrics{
		created:      created,
		updated:      updated,
		deleted:      deleted,
		voucherRetry: voucherRetry,
		ledgerDrift:  ledgerDrift,
	}
}

// IncCreated increments the created counter.
func (r *ReceiptMetrics) IncCreated() {
	if r == nil || r.created == nil {
		return
	}
	r.created.Inc()
}

// IncUpdated increments the updated counter.
func (r *ReceiptMetrics) IncUpdated() {
	if r == nil || r.updated == nil {
		return
	}
	r.updated.Inc()
}

// IncDeleted increments the deleted counter.
func (r *ReceiptMetrics) IncDeleted() {
	if r == nil || r.deleted == nil {
		return
	}
	r.deleted.Inc()
}

// IncVoucherRetry increments the voucher retry counter.
func (r *ReceiptMetrics) IncVoucherRetry() {
	if r == nil || r.voucherRetry == nil {
		return
	}
	r.voucherRetry.Inc()
}

// IncLedgerDrift increments the drift counter for a client.
func (r *ReceiptMetrics) IncLedgerDrift(clientID string) {
	if r == nil || r.ledgerDrift == nil {
		return
	}
	r.ledgerDrift.WithLabelValues(clientID).Inc()
}
