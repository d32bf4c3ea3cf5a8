package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// gathered returns the value of the named metric whose labels include
// label (or the unlabelled metric when label is empty).
func gathered(t *testing.T, name, label string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" {
				match := false
				for _, lp := range m.GetLabel() {
					if lp.GetValue() == label {
						match = true
					}
				}
				if !match {
					continue
				}
			}
			switch {
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestLedgerMetrics_SingletonAndValues(t *testing.T) {
	m := Ledger()
	require.Same(t, m, Ledger())

	m.SetState(12, 3, 2, 1, 4, 5)
	require.Equal(t, 12.0, gathered(t, "chasm_ledger_height", ""))
	require.Equal(t, 2.0, gathered(t, "chasm_ledger_outputs", "dutxo"))
	require.Equal(t, 4.0, gathered(t, "chasm_ledger_exchanges", "matched"))
	require.Equal(t, 5.0, gathered(t, "chasm_ledger_pending_txs", ""))

	before := gathered(t, "chasm_ledger_apply_failures_total", "unknown")
	m.ObserveApplyFailure("")
	require.Equal(t, before+1, gathered(t, "chasm_ledger_apply_failures_total", "unknown"))
}

func TestNodeMetrics_Results(t *testing.T) {
	m := Node()
	m.ObserveTxSubmitted(nil)
	accepted := gathered(t, "chasm_node_tx_submitted_total", "accepted")
	rejected := gathered(t, "chasm_node_tx_submitted_total", "rejected")

	m.ObserveTxSubmitted(nil)
	m.ObserveTxSubmitted(errors.New("bad"))

	require.Equal(t, accepted+1, gathered(t, "chasm_node_tx_submitted_total", "accepted"))
	require.Equal(t, rejected+1, gathered(t, "chasm_node_tx_submitted_total", "rejected"))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var l *LedgerMetrics
	var n *NodeMetrics
	require.NotPanics(t, func() {
		l.SetState(1, 1, 1, 1, 1, 1)
		l.ObserveBlockApplied(0.1)
		l.ObserveReload()
		n.ObserveBlockMined(0.1)
		n.ObserveTxDropped()
	})
}
