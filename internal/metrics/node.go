package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// NodeMetrics tracks submissions and mining.
type NodeMetrics struct {
	txSubmitted    *prometheus.CounterVec
	blockSubmitted *prometheus.CounterVec
	blocksMined    prometheus.Counter
	sealSeconds    prometheus.Histogram
	txDropped      prometheus.Counter
}

var (
	nodeOnce     sync.Once
	nodeRegistry *NodeMetrics
)

// Node returns the process-wide node metrics, registering them on first use.
func Node() *NodeMetrics {
	nodeOnce.Do(func() {
		nodeRegistry = &NodeMetrics{
			txSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "chasm_node_tx_submitted_total",
				Help: "Count of submitted transactions by result.",
			}, []string{"result"}),
			blockSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "chasm_node_block_submitted_total",
				Help: "Count of submitted blocks by result.",
			}, []string{"result"}),
			blocksMined: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "chasm_miner_blocks_total",
				Help: "Count of blocks mined locally.",
			}),
			sealSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "chasm_miner_seal_seconds",
				Help:    "Time spent searching for a nonce.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			}),
			txDropped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "chasm_miner_tx_dropped_total",
				Help: "Count of pending transactions dropped as invalid during block building.",
			}),
		}
		prometheus.MustRegister(
			nodeRegistry.txSubmitted,
			nodeRegistry.blockSubmitted,
			nodeRegistry.blocksMined,
			nodeRegistry.sealSeconds,
			nodeRegistry.txDropped,
		)
	})
	return nodeRegistry
}

func result(err error) string {
	if err != nil {
		return "rejected"
	}
	return "accepted"
}

// ObserveTxSubmitted records a transaction submission outcome.
func (m *NodeMetrics) ObserveTxSubmitted(err error) {
	if m == nil {
		return
	}
	m.txSubmitted.WithLabelValues(result(err)).Inc()
}

// ObserveBlockSubmitted records a block submission outcome.
func (m *NodeMetrics) ObserveBlockSubmitted(err error) {
	if m == nil {
		return
	}
	m.blockSubmitted.WithLabelValues(result(err)).Inc()
}

// ObserveBlockMined records a sealed block and the time the search took.
func (m *NodeMetrics) ObserveBlockMined(sealSeconds float64) {
	if m == nil {
		return
	}
	m.blocksMined.Inc()
	m.sealSeconds.Observe(sealSeconds)
}

// ObserveTxDropped records a pending transaction that failed re-validation.
func (m *NodeMetrics) ObserveTxDropped() {
	if m == nil {
		return
	}
	m.txDropped.Inc()
}
