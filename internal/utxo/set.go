// Package utxo holds the spendable (UTXO) and escrowed (DUTXO) output
// sets and their persistence.
package utxo

import (
	"fmt"
	"math"

	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Set is an in-memory output set keyed by outpoint.
// It is not safe for concurrent use; the ledger serialises access.
type Set struct {
	outputs map[types.Outpoint]tx.Output
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{outputs: make(map[types.Outpoint]tx.Output)}
}

// Get returns the output at op.
func (s *Set) Get(op types.Outpoint) (tx.Output, bool) {
	out, ok := s.outputs[op]
	return out, ok
}

// Has reports whether op is in the set.
func (s *Set) Has(op types.Outpoint) bool {
	_, ok := s.outputs[op]
	return ok
}

// Add inserts or replaces the output at op.
func (s *Set) Add(op types.Outpoint, out tx.Output) {
	s.outputs[op] = out
}

// Remove deletes op and returns the output it held.
func (s *Set) Remove(op types.Outpoint) (tx.Output, bool) {
	out, ok := s.outputs[op]
	if ok {
		delete(s.outputs, op)
	}
	return out, ok
}

// Len returns the number of outputs.
func (s *Set) Len() int {
	return len(s.outputs)
}

// Total returns the sum of all output values.
func (s *Set) Total() (uint64, error) {
	var total uint64
	for _, out := range s.outputs {
		if total > math.MaxUint64-out.Amount() {
			return 0, fmt.Errorf("utxo total overflow")
		}
		total += out.Amount()
	}
	return total, nil
}

// Copy returns a deep copy of the contents as a plain map.
func (s *Set) Copy() map[types.Outpoint]tx.Output {
	cp := make(map[types.Outpoint]tx.Output, len(s.outputs))
	for op, out := range s.outputs {
		cp[op] = out.Clone()
	}
	return cp
}
