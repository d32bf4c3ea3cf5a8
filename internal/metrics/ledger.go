// Package metrics exposes Prometheus instrumentation for chasmd.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks ledger state and block application.
type LedgerMetrics struct {
	height        prometheus.Gauge
	outputs       *prometheus.GaugeVec
	exchanges     *prometheus.GaugeVec
	pending       prometheus.Gauge
	blocksApplied prometheus.Counter
	applyFailures *prometheus.CounterVec
	applySeconds  prometheus.Histogram
	reloads       prometheus.Counter
	evictions     prometheus.Counter
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide ledger metrics, registering them on
// first use.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "chasm_ledger_height",
				Help: "Height of the current chain tip.",
			}),
			outputs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "chasm_ledger_outputs",
				Help: "Number of outputs held per set.",
			}, []string{"set"}),
			exchanges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "chasm_ledger_exchanges",
				Help: "Number of unresolved exchanges by state.",
			}, []string{"state"}),
			pending: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "chasm_ledger_pending_txs",
				Help: "Number of transactions in the pending queue.",
			}),
			blocksApplied: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "chasm_ledger_blocks_applied_total",
				Help: "Count of blocks applied to the ledger.",
			}),
			applyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "chasm_ledger_apply_failures_total",
				Help: "Count of rejected block applications by stage.",
			}, []string{"stage"}),
			applySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "chasm_ledger_apply_seconds",
				Help:    "Time spent applying a block.",
				Buckets: prometheus.DefBuckets,
			}),
			reloads: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "chasm_ledger_reloads_total",
				Help: "Count of full state reloads from storage.",
			}),
			evictions: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "chasm_ledger_pending_evictions_total",
				Help: "Count of pending transactions evicted by higher-priority ones.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.height,
			ledgerRegistry.outputs,
			ledgerRegistry.exchanges,
			ledgerRegistry.pending,
			ledgerRegistry.blocksApplied,
			ledgerRegistry.applyFailures,
			ledgerRegistry.applySeconds,
			ledgerRegistry.reloads,
			ledgerRegistry.evictions,
		)
	})
	return ledgerRegistry
}

// SetState records the sizes of the ledger indexes.
func (m *LedgerMetrics) SetState(height uint64, utxos, dutxos, active, matched, pending int) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
	m.outputs.WithLabelValues("utxo").Set(float64(utxos))
	m.outputs.WithLabelValues("dutxo").Set(float64(dutxos))
	m.exchanges.WithLabelValues("active").Set(float64(active))
	m.exchanges.WithLabelValues("matched").Set(float64(matched))
	m.pending.Set(float64(pending))
}

// SetPending records the pending queue length.
func (m *LedgerMetrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

// ObserveBlockApplied records a successful block application.
func (m *LedgerMetrics) ObserveBlockApplied(seconds float64) {
	if m == nil {
		return
	}
	m.blocksApplied.Inc()
	m.applySeconds.Observe(seconds)
}

// ObserveApplyFailure records a failed block application.
func (m *LedgerMetrics) ObserveApplyFailure(stage string) {
	if m == nil {
		return
	}
	if stage == "" {
		stage = "unknown"
	}
	m.applyFailures.WithLabelValues(stage).Inc()
}

// ObserveReload records a reload from storage.
func (m *LedgerMetrics) ObserveReload() {
	if m == nil {
		return
	}
	m.reloads.Inc()
}

// ObserveEviction records a pending transaction evicted by a better one.
func (m *LedgerMetrics) ObserveEviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}
