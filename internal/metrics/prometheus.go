package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Ledger metrics
	DepositsTotal    *prometheus.CounterVec
	WithdrawalsTotal *prometheus.CounterVec
	EscrowedAmount   *prometheus.GaugeVec

	// Commitment metrics
	CommitmentsCreated  prometheus.Counter
	CommitmentsSettled  prometheus.Counter
	CommitmentsRefunded prometheus.Counter

	// Dispute metrics
	DisputesOpened   prometheus.Counter
	DisputesResolved *prometheus.CounterVec

	// Settlement batch metrics
	BatchesExecuted      prometheus.Counter
	BatchSettled         prometheus.Counter
	BatchSkipped         prometheus.Counter
	SettleableCandidates prometheus.Gauge
}

var globalMetrics *Metrics

// NewMetrics creates and registers Prometheus metrics
func NewMetrics() *Metrics {
	if globalMetrics != nil {
		return globalMetrics
	}

	globalMetrics = &Metrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowd_operations_total",
				Help: "Total number of ledger operations processed",
			},
			[]string{"operation"},
		),

		OperationErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowd_operation_errors_total",
				Help: "Total number of failed ledger operations",
			},
			[]string{"operation", "error_code"},
		),

		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrowd_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		DepositsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowd_deposits_total",
				Help: "Total amount deposited by tenant",
			},
			[]string{"tenant_id"},
		),

		WithdrawalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowd_withdrawals_total",
				Help: "Total amount withdrawn by tenant",
			},
			[]string{"tenant_id"},
		),

		EscrowedAmount: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "escrowd_escrowed_amount",
				Help: "Amount currently locked in open commitments by tenant",
			},
			[]string{"tenant_id"},
		),

		CommitmentsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrowd_commitments_created_total",
				Help: "Total number of commitments created",
			},
		),

		CommitmentsSettled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrowd_commitments_settled_total",
				Help: "Total number of commitments settled",
			},
		),

		CommitmentsRefunded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrowd_commitments_refunded_total",
				Help: "Total number of commitments refunded",
			},
		),

		DisputesOpened: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrowd_disputes_opened_total",
				Help: "Total number of disputes opened",
			},
		),

		DisputesResolved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowd_disputes_resolved_total",
				Help: "Total number of disputes resolved by outcome",
			},
			[]string{"outcome"},
		),

		BatchesExecuted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrowd_settlement_batches_total",
				Help: "Total number of settlement batches executed",
			},
		),

		BatchSettled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrowd_settlement_batch_settled_total",
				Help: "Total number of commitments settled through batches",
			},
		),

		BatchSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrowd_settlement_batch_skipped_total",
				Help: "Total number of stale batch candidates skipped",
			},
		),

		SettleableCandidates: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "escrowd_settleable_candidates",
				Help: "Number of settleable commitments seen by the last check",
			},
		),
	}

	return globalMetrics
}
