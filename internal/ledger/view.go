package ledger

import (
	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// MatchedOffer is an exchange whose offer has been matched, with the
// timestamp of the block that applied the match.
type MatchedOffer struct {
	Offer     *tx.OfferTx `json:"offer"`
	Match     *tx.MatchTx `json:"match"`
	Timestamp uint64      `json:"timestamp"`
}

// Clone returns a deep copy.
func (m *MatchedOffer) Clone() *MatchedOffer {
	return &MatchedOffer{
		Offer:     m.Offer.Clone().(*tx.OfferTx),
		Match:     m.Match.Clone().(*tx.MatchTx),
		Timestamp: m.Timestamp,
	}
}

// Deposit returns the outpoint of the deposit posted by side.
func (m *MatchedOffer) Deposit(side tx.Side) (types.Outpoint, bool) {
	switch side {
	case tx.SideMaker:
		return types.Outpoint{TxID: tx.Hash(m.Offer), Index: m.Offer.DepositIndex}, true
	case tx.SideTaker:
		return types.Outpoint{TxID: tx.Hash(m.Match), Index: m.Match.DepositIndex}, true
	default:
		return types.Outpoint{}, false
	}
}

// View is the read-only state validation runs against. Values returned
// must not be modified.
type View interface {
	Height() uint64
	HeaderAt(height uint64) (*block.Header, bool)
	UTXO(op types.Outpoint) (tx.Output, bool)
	ActiveOffer(exchange types.Hash) (*tx.OfferTx, bool)
	MatchedOffer(exchange types.Hash) (*MatchedOffer, bool)
}

// lockedView reads the ledger directly. It is only valid while the
// ledger lock is held.
type lockedView struct {
	l *Ledger
}

func (v lockedView) Height() uint64 { return v.l.height }

func (v lockedView) HeaderAt(height uint64) (*block.Header, bool) {
	if height >= uint64(len(v.l.hashes)) {
		return nil, false
	}
	return v.l.blocks[v.l.hashes[height]].blk.Header, true
}

func (v lockedView) UTXO(op types.Outpoint) (tx.Output, bool) {
	return v.l.utxos.Get(op)
}

func (v lockedView) ActiveOffer(exchange types.Hash) (*tx.OfferTx, bool) {
	o, ok := v.l.active[exchange]
	return o, ok
}

func (v lockedView) MatchedOffer(exchange types.Hash) (*MatchedOffer, bool) {
	m, ok := v.l.matched[exchange]
	return m, ok
}

// Snapshot is a detached View. The zero value is an empty state at
// height 0; tests build states by filling its maps.
type Snapshot struct {
	Headers []*block.Header
	UTXOs   map[types.Outpoint]tx.Output
	Active  map[types.Hash]*tx.OfferTx
	Matched map[types.Hash]*MatchedOffer
}

// NewSnapshot returns an empty snapshot whose chain holds only genesis.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Headers: []*block.Header{block.Genesis().Header},
		UTXOs:   make(map[types.Outpoint]tx.Output),
		Active:  make(map[types.Hash]*tx.OfferTx),
		Matched: make(map[types.Hash]*MatchedOffer),
	}
}

func (s *Snapshot) Height() uint64 {
	if len(s.Headers) == 0 {
		return 0
	}
	return uint64(len(s.Headers) - 1)
}

func (s *Snapshot) HeaderAt(height uint64) (*block.Header, bool) {
	if height >= uint64(len(s.Headers)) {
		return nil, false
	}
	return s.Headers[height], true
}

func (s *Snapshot) UTXO(op types.Outpoint) (tx.Output, bool) {
	out, ok := s.UTXOs[op]
	return out, ok
}

func (s *Snapshot) ActiveOffer(exchange types.Hash) (*tx.OfferTx, bool) {
	o, ok := s.Active[exchange]
	return o, ok
}

func (s *Snapshot) MatchedOffer(exchange types.Hash) (*MatchedOffer, bool) {
	m, ok := s.Matched[exchange]
	return m, ok
}
