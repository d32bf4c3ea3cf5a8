// Package miner implements block production for the Chasm ledger.
package miner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xpeer-network/chasm/internal/consensus"
	"github.com/xpeer-network/chasm/internal/ledger"
	"github.com/xpeer-network/chasm/internal/log"
	"github.com/xpeer-network/chasm/internal/metrics"
	"github.com/xpeer-network/chasm/internal/validation"
	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// DefaultMaxBlockTxs caps the transactions of a produced block, minting included.
const DefaultMaxBlockTxs = 1000

// sizeReserve is kept free in a block for the header, the minting
// transaction and encoding overhead.
const sizeReserve = 4096

// Chain is the part of the ledger the miner reads and drains.
type Chain interface {
	View() *ledger.Snapshot
	TxLocation(txHash types.Hash) (ledger.TxLocation, bool)
	PopPendingTx() (*tx.Signed, uint64, error)
	AddPendingTx(stx *tx.Signed, priority uint64) (uint32, error)
}

// TxValidator checks a transaction against a ledger view.
type TxValidator interface {
	ValidateTransaction(view ledger.View, stx *tx.Signed) error
}

// Miner produces new blocks.
type Miner struct {
	chain       Chain
	pow         *consensus.PoW
	engine      consensus.Engine
	validator   TxValidator
	coinbase    types.Address
	maxBlockTxs int
	now         func() time.Time
	logger      zerolog.Logger
}

// Option configures a Miner.
type Option func(*Miner)

// WithMaxBlockTxs overrides DefaultMaxBlockTxs.
func WithMaxBlockTxs(n int) Option {
	return func(m *Miner) { m.maxBlockTxs = n }
}

// WithClock replaces the wall clock used for block timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Miner) { m.now = now }
}

// New creates a block producer paying rewards to coinbase.
func New(chain Chain, pow *consensus.PoW, validator TxValidator, coinbase types.Address, opts ...Option) *Miner {
	m := &Miner{
		chain:       chain,
		pow:         pow,
		engine:      pow.AsEngine(),
		validator:   validator,
		coinbase:    coinbase.Clone(),
		maxBlockTxs: DefaultMaxBlockTxs,
		now:         time.Now,
		logger:      log.Miner,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// selection is the set of pending transactions chosen for one block.
type selection struct {
	txs       []*tx.Signed
	priority  []uint64
	fees      uint64
	size      int
	spent     map[types.Outpoint]struct{}
	hashes    map[types.Hash]struct{}
	exchanges *validation.ExchangeClaims
}

func newSelection() *selection {
	return &selection{
		spent:     make(map[types.Outpoint]struct{}),
		hashes:    make(map[types.Hash]struct{}),
		exchanges: validation.NewExchangeClaims(),
	}
}

// conflicts reports why stx cannot join the selection, or "" if it can.
func (s *selection) conflicts(view ledger.View, stx *tx.Signed) string {
	if _, dup := s.hashes[stx.Hash()]; dup {
		return "duplicate transaction"
	}
	for _, op := range tx.Outpoints(stx.Tx) {
		if _, dup := s.spent[op]; dup {
			return "input spent earlier in block"
		}
	}
	if err := s.exchanges.Check(view, stx); err != nil {
		return err.Error()
	}
	return ""
}

func (s *selection) add(view ledger.View, stx *tx.Signed, priority, fee uint64, size int) {
	s.txs = append(s.txs, stx)
	s.priority = append(s.priority, priority)
	s.fees += fee
	s.size += size
	s.hashes[stx.Hash()] = struct{}{}
	for _, op := range tx.Outpoints(stx.Tx) {
		s.spent[op] = struct{}{}
	}
	s.exchanges.Add(view, stx)
}

// Produce builds and seals a block on the current tip. Pending
// transactions that no longer validate are dropped; if sealing fails the
// selected transactions are returned to the pending queue. The block is
// NOT applied to the ledger.
func (m *Miner) Produce(ctx context.Context) (*block.Block, error) {
	view := m.chain.View()
	sel, err := m.selectTxs(view)
	if err != nil {
		return nil, err
	}
	blk, err := m.assemble(ctx, view, sel)
	if err != nil {
		m.requeue(sel)
		return nil, err
	}
	return blk, nil
}

func (m *Miner) selectTxs(view *ledger.Snapshot) (*selection, error) {
	sel := newSelection()
	limit := m.maxBlockTxs - 1
	for len(sel.txs) < limit {
		stx, priority, err := m.chain.PopPendingTx()
		if errors.Is(err, ledger.ErrPendingQueueEmpty) {
			break
		}
		if err != nil {
			m.requeue(sel)
			return nil, fmt.Errorf("pop pending: %w", err)
		}
		txHash := stx.Hash()
		if _, ok := m.chain.TxLocation(txHash); ok {
			m.drop(txHash, "already in chain")
			continue
		}
		if reason := sel.conflicts(view, stx); reason != "" {
			m.drop(txHash, reason)
			continue
		}
		if err := m.validator.ValidateTransaction(view, stx); err != nil {
			m.drop(txHash, err.Error())
			continue
		}
		size := stx.Size()
		if sel.size+size > block.MaxSize-sizeReserve {
			// Too big for this block; keep it for the next one.
			if _, err := m.chain.AddPendingTx(stx, priority); err != nil {
				m.drop(txHash, err.Error())
			}
			break
		}
		sel.add(view, stx, priority, fee(view, stx.Tx), size)
	}
	return sel, nil
}

func (m *Miner) assemble(ctx context.Context, view *ledger.Snapshot, sel *selection) (*block.Block, error) {
	parentHeight := view.Height()
	parent, ok := view.HeaderAt(parentHeight)
	if !ok {
		return nil, fmt.Errorf("missing tip header at height %d", parentHeight)
	}
	height := parentHeight + 1

	// Block timestamp must be strictly after the parent.
	timestamp := uint64(m.now().Unix())
	if timestamp <= parent.Timestamp {
		timestamp = parent.Timestamp + 1
	}

	reward := consensus.MintingValue(height)
	value := reward + sel.fees
	if value < reward {
		return nil, fmt.Errorf("minting value overflows at height %d", height)
	}
	minting := BuildMinting(m.coinbase, value, height)

	txs := make([]*tx.Signed, 0, 1+len(sel.txs))
	txs = append(txs, minting)
	txs = append(txs, sel.txs...)

	timestampAt := func(h uint64) (uint64, error) {
		hdr, ok := view.HeaderAt(h)
		if !ok {
			return 0, fmt.Errorf("no header at height %d", h)
		}
		return hdr.Timestamp, nil
	}
	header := &block.Header{
		PrevHash:   parent.Hash(),
		Difficulty: m.pow.ExpectedDifficulty(height, parent.Difficulty, timestampAt),
		Timestamp:  timestamp,
	}
	blk := block.NewBlock(header, txs)
	header.MerkleRoot = block.ComputeMerkleRoot(blk.TxHashes())

	start := time.Now()
	if err := m.engine.Seal(ctx, blk); err != nil {
		return nil, fmt.Errorf("seal block: %w", err)
	}
	metrics.Node().ObserveBlockMined(time.Since(start).Seconds())

	m.logger.Info().
		Uint64("height", height).
		Str("hash", blk.Hash().Short()).
		Int("txs", len(txs)).
		Uint64("difficulty", header.Difficulty).
		Uint64("minted", value).
		Msg("Block sealed")
	return blk, nil
}

func (m *Miner) requeue(sel *selection) {
	for i, stx := range sel.txs {
		if _, err := m.chain.AddPendingTx(stx, sel.priority[i]); err != nil {
			m.drop(stx.Hash(), err.Error())
		}
	}
}

func (m *Miner) drop(txHash types.Hash, reason string) {
	metrics.Node().ObserveTxDropped()
	m.logger.Debug().Str("tx", txHash.Short()).Str("reason", reason).Msg("Pending transaction dropped")
}

// fee returns inputs minus outputs of a transaction that already passed
// validation against view.
func fee(view ledger.View, t tx.Transaction) uint64 {
	var in uint64
	for _, input := range t.Body().Inputs {
		if out, ok := view.UTXO(input.PrevOut); ok {
			in += out.Amount()
		}
	}
	out, err := tx.SumOutputs(t.Body().Outputs)
	if err != nil || out > in {
		return 0
	}
	return in - out
}

// BuildMinting creates the minting transaction paying value to addr at height.
func BuildMinting(addr types.Address, value, height uint64) *tx.Signed {
	return tx.Unsigned(tx.NewBuilder().AddTransfer(value, addr).Minting(height))
}
