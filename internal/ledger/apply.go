package ledger

import (
	"fmt"
	"time"

	"github.com/xpeer-network/chasm/internal/log"
	"github.com/xpeer-network/chasm/internal/storage"
	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// ApplyBlock appends blk to the chain. It does not validate the block
// against consensus or transaction rules; it only enforces that the state
// transition is well formed. Every change lands in one storage batch. On
// failure the batch is discarded and the in-memory state is reloaded, so
// the ledger is left exactly as it was.
func (l *Ledger) ApplyBlock(blk *block.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applyBlock(blk)
}

// ApplyValidated runs check against the current state and applies blk if
// it passes, without releasing the lock in between.
func (l *Ledger) ApplyValidated(blk *block.Block, check func(View) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if check != nil {
		if err := check(lockedView{l}); err != nil {
			return err
		}
	}
	return l.applyBlock(blk)
}

func (l *Ledger) applyBlock(blk *block.Block) error {
	if blk == nil || blk.Header == nil {
		return ErrNilBlock
	}
	for i, stx := range blk.Transactions {
		if err := tx.CheckWellFormed(stx); err != nil {
			return fmt.Errorf("block tx %d: %w", i, err)
		}
	}
	start := time.Now()
	blk = blk.Clone()
	hash := blk.Hash()
	if _, ok := l.blocks[hash]; ok {
		return fmt.Errorf("%w: %s", ErrBlockKnown, hash)
	}

	batch := l.db.NewBatch()
	if stage, err := l.stageBlock(batch, blk, hash); err != nil {
		batch.Discard()
		l.metrics.ObserveApplyFailure(stage)
		return l.recover(fmt.Errorf("apply block %s: %w", hash.Short(), err))
	}
	if err := batch.Commit(); err != nil {
		l.metrics.ObserveApplyFailure("commit")
		return l.recover(fmt.Errorf("commit block %s: %w", hash.Short(), err))
	}

	l.metrics.ObserveBlockApplied(time.Since(start).Seconds())
	l.updateGauges()
	blockLog := log.WithBlock(l.logger, hash.String(), l.height)
	blockLog.Info().Int("txs", len(blk.Transactions)).Msg("Block applied")
	return nil
}

// recover restores the in-memory state after a failed mutation.
func (l *Ledger) recover(cause error) error {
	l.metrics.ObserveReload()
	if err := l.reload(); err != nil {
		l.logger.Error().Err(err).AnErr("cause", cause).Msg("Reload after failed apply")
		return fmt.Errorf("%w (reload failed: %v)", cause, err)
	}
	l.logger.Debug().Err(cause).Msg("State reloaded after failed apply")
	return cause
}

// stageBlock mutates the in-memory state and records the same changes in
// batch. It returns the name of the failing stage with any error.
func (l *Ledger) stageBlock(batch storage.Batch, blk *block.Block, hash types.Hash) (string, error) {
	height := l.height + 1
	hashes := blk.TxHashes()

	// Index transactions.
	for i, h := range hashes {
		if _, ok := l.txIndex[h]; ok {
			return "index", fmt.Errorf("%w: %s", ErrTxOverwrite, h)
		}
		loc := TxLocation{BlockHash: hash, Height: height, Position: uint32(i)}
		l.txIndex[h] = loc
		if err := l.records.putTx(batch, h, loc); err != nil {
			return "index", err
		}
	}

	// Materialise outputs; deposits go to escrow.
	for i, stx := range blk.Transactions {
		deposit, escrowed := depositIndex(stx.Tx)
		for idx, out := range stx.Tx.Body().Outputs {
			op := types.Outpoint{TxID: hashes[i], Index: uint32(idx)}
			if escrowed && uint32(idx) == deposit {
				l.dutxos.Add(op, out)
				if err := l.dutxoStore.Put(batch, op, out); err != nil {
					return "outputs", err
				}
				continue
			}
			l.utxos.Add(op, out)
			if err := l.utxoStore.Put(batch, op, out); err != nil {
				return "outputs", err
			}
		}
	}

	// Spend inputs.
	for i, stx := range blk.Transactions {
		for _, op := range tx.Outpoints(stx.Tx) {
			if _, ok := l.utxos.Remove(op); !ok {
				return "inputs", fmt.Errorf("%w: tx %s input %s", ErrUTXONotFound, hashes[i].Short(), op)
			}
			if err := l.utxoStore.Delete(batch, op); err != nil {
				return "inputs", err
			}
		}
	}

	// Open offers.
	for i, stx := range blk.Transactions {
		offer, ok := stx.Tx.(*tx.OfferTx)
		if !ok {
			continue
		}
		l.active[hashes[i]] = offer
		if err := l.records.putActive(batch, hashes[i], offer); err != nil {
			return "offers", err
		}
	}

	// Match offers.
	for _, stx := range blk.Transactions {
		match, ok := stx.Tx.(*tx.MatchTx)
		if !ok {
			continue
		}
		offer, ok := l.active[match.Exchange]
		if !ok {
			return "matches", fmt.Errorf("%w: match of inactive offer %s", ErrUnknownExchange, match.Exchange)
		}
		delete(l.active, match.Exchange)
		if err := l.records.deleteActive(batch, match.Exchange); err != nil {
			return "matches", err
		}
		m := &MatchedOffer{Offer: offer, Match: match, Timestamp: blk.Header.Timestamp}
		l.matched[match.Exchange] = m
		if err := l.records.putMatched(batch, match.Exchange, m); err != nil {
			return "matches", err
		}
	}

	// Confirmations release both deposits.
	for _, stx := range blk.Transactions {
		conf, ok := stx.Tx.(*tx.ConfirmationTx)
		if !ok {
			continue
		}
		m, ok := l.matched[conf.Exchange]
		if !ok {
			return "confirmations", fmt.Errorf("%w: confirmation of %s", ErrUnknownExchange, conf.Exchange)
		}
		if err := l.resolve(batch, conf.Exchange); err != nil {
			return "confirmations", err
		}
		for _, side := range []tx.Side{tx.SideMaker, tx.SideTaker} {
			op, _ := m.Deposit(side)
			if err := l.release(batch, op); err != nil {
				return "confirmations", err
			}
		}
	}

	// Unlocks release one deposit.
	for _, stx := range blk.Transactions {
		unlock, ok := stx.Tx.(*tx.UnlockingDepositTx)
		if !ok {
			continue
		}
		if err := l.unlock(batch, unlock); err != nil {
			return "unlocks", err
		}
	}

	// Append the block.
	if err := l.records.putBlock(batch, blk, height); err != nil {
		return "block", err
	}
	l.blocks[hash] = &storedBlock{blk: blk, height: height}
	l.hashes = append(l.hashes, hash)
	l.height = height
	return "", nil
}

func (l *Ledger) unlock(batch storage.Batch, unlock *tx.UnlockingDepositTx) error {
	if m, ok := l.matched[unlock.Exchange]; ok {
		op, ok := m.Deposit(unlock.ProofSide)
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownProofSide, unlock.ProofSide)
		}
		if err := l.resolve(batch, unlock.Exchange); err != nil {
			return err
		}
		return l.release(batch, op)
	}
	if offer, ok := l.active[unlock.Exchange]; ok {
		delete(l.active, unlock.Exchange)
		if err := l.records.deleteActive(batch, unlock.Exchange); err != nil {
			return err
		}
		return l.release(batch, types.Outpoint{TxID: unlock.Exchange, Index: offer.DepositIndex})
	}
	return fmt.Errorf("%w: unlock of %s", ErrUnknownExchange, unlock.Exchange)
}

// resolve removes a matched exchange.
func (l *Ledger) resolve(batch storage.Batch, exchange types.Hash) error {
	delete(l.matched, exchange)
	return l.records.deleteMatched(batch, exchange)
}

// release moves a deposit from escrow to the spendable set.
func (l *Ledger) release(batch storage.Batch, op types.Outpoint) error {
	out, ok := l.dutxos.Remove(op)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDepositNotFound, op)
	}
	if err := l.dutxoStore.Delete(batch, op); err != nil {
		return err
	}
	l.utxos.Add(op, out)
	return l.utxoStore.Put(batch, op, out)
}

func depositIndex(t tx.Transaction) (uint32, bool) {
	if e, ok := t.(tx.Escrowed); ok {
		return e.Deposit(), true
	}
	return 0, false
}
