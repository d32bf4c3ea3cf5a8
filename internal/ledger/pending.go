package ledger

import (
	"fmt"

	"github.com/xpeer-network/chasm/internal/log"
	"github.com/xpeer-network/chasm/pkg/tx"
)

// PendingTx is a queued transaction.
type PendingTx struct {
	Slot     uint32     `json:"slot"`
	Priority uint64     `json:"priority"`
	Tx       *tx.Signed `json:"tx"`
}

// AddPendingTx queues stx and returns the slot it occupies. When the queue
// is full it replaces the lowest-priority entry if priority is higher, and
// fails with ErrPendingQueueFull otherwise.
func (l *Ledger) AddPendingTx(stx *tx.Signed, priority uint64) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addPending(stx, priority)
}

// AddPendingValidated runs check against the current state and queues stx
// if it passes, without releasing the lock in between.
func (l *Ledger) AddPendingValidated(stx *tx.Signed, priority uint64, check func(View) error) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if check != nil {
		if err := check(lockedView{l}); err != nil {
			return 0, err
		}
	}
	return l.addPending(stx, priority)
}

func (l *Ledger) addPending(stx *tx.Signed, priority uint64) (uint32, error) {
	if err := tx.CheckWellFormed(stx); err != nil {
		return 0, err
	}
	stx = stx.Clone()
	entry, evicted, err := l.pending.Push(stx, priority)
	if err != nil {
		return 0, err
	}

	batch := l.db.NewBatch()
	if evicted != nil && evicted.Slot != entry.Slot {
		if err := l.records.deletePending(batch, evicted.Slot); err != nil {
			batch.Discard()
			return 0, l.recover(err)
		}
	}
	if err := l.records.putPending(batch, entry.Slot, stx, priority); err != nil {
		batch.Discard()
		return 0, l.recover(err)
	}
	if err := batch.Commit(); err != nil {
		return 0, l.recover(fmt.Errorf("commit pending: %w", err))
	}

	if evicted != nil {
		l.metrics.ObserveEviction()
		log.Mempool.Debug().
			Str("evicted", evicted.Tx.Hash().String()).
			Uint64("priority", evicted.Priority).
			Msg("Pending transaction evicted")
	}
	l.metrics.SetPending(l.pending.Len())
	return entry.Slot, nil
}

// PopPendingTx removes and returns the highest-priority pending
// transaction, or ErrPendingQueueEmpty.
func (l *Ledger) PopPendingTx() (*tx.Signed, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.pending.Pop()
	if err != nil {
		return nil, 0, err
	}
	batch := l.db.NewBatch()
	if err := l.records.deletePending(batch, entry.Slot); err != nil {
		batch.Discard()
		return nil, 0, l.recover(err)
	}
	if err := batch.Commit(); err != nil {
		return nil, 0, l.recover(fmt.Errorf("commit pending: %w", err))
	}
	l.metrics.SetPending(l.pending.Len())
	return entry.Tx.Clone(), entry.Priority, nil
}

// PendingTxs returns the queued transactions in pop order.
func (l *Ledger) PendingTxs() []PendingTx {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.pending.Entries()
	out := make([]PendingTx, len(entries))
	for i, e := range entries {
		out[i] = PendingTx{Slot: e.Slot, Priority: e.Priority, Tx: e.Tx.Clone()}
	}
	return out
}

// PendingLen returns the number of queued transactions.
func (l *Ledger) PendingLen() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pending.Len()
}
