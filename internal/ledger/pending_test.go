package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

func pendingTransfer(n byte) *tx.Signed {
	t := tx.NewBuilder().
		AddInput(types.Outpoint{TxID: types.Hash{n}}).
		AddTransfer(uint64(n), testAddr(n)).
		Transfer()
	return &tx.Signed{Tx: t, Signatures: [][]byte{{n}}}
}

// queue adds stx and returns its slot.
func queue(t *testing.T, l *Ledger, stx *tx.Signed, priority uint64) uint32 {
	t.Helper()
	slot, err := l.AddPendingTx(stx, priority)
	require.NoError(t, err)
	return slot
}

func TestPending_PriorityAndFIFO(t *testing.T) {
	l, _ := openMemory(t)
	queue(t, l, pendingTransfer(1), 1)
	queue(t, l, pendingTransfer(2), 5)
	queue(t, l, pendingTransfer(3), 1)
	require.Equal(t, 3, l.PendingLen())

	want := []struct {
		n        byte
		priority uint64
	}{{2, 5}, {1, 1}, {3, 1}}
	for _, w := range want {
		stx, priority, err := l.PopPendingTx()
		require.NoError(t, err)
		require.Equal(t, w.priority, priority)
		require.Equal(t, pendingTransfer(w.n).Hash(), stx.Hash())
	}

	_, _, err := l.PopPendingTx()
	require.ErrorIs(t, err, ErrPendingQueueEmpty)
}

func TestPending_Eviction(t *testing.T) {
	l, _ := openMemory(t, WithPendingSize(2))
	require.Equal(t, uint32(0), queue(t, l, pendingTransfer(1), 3))
	require.Equal(t, uint32(1), queue(t, l, pendingTransfer(2), 1))

	_, err := l.AddPendingTx(pendingTransfer(3), 1)
	require.ErrorIs(t, err, ErrPendingQueueFull)

	// The evicted entry's slot goes to the newcomer.
	require.Equal(t, uint32(1), queue(t, l, pendingTransfer(4), 2))
	hashes := map[types.Hash]bool{}
	for _, p := range l.PendingTxs() {
		hashes[p.Tx.Hash()] = true
	}
	require.True(t, hashes[pendingTransfer(1).Hash()])
	require.True(t, hashes[pendingTransfer(4).Hash()])
	require.False(t, hashes[pendingTransfer(2).Hash()], "lowest priority entry evicted")
}

func TestPending_SurvivesReopen(t *testing.T) {
	l, db := openMemory(t, WithPendingSize(4))
	queue(t, l, pendingTransfer(1), 2)
	queue(t, l, pendingTransfer(2), 7)
	queue(t, l, pendingTransfer(3), 4)
	_, _, err := l.PopPendingTx()
	require.NoError(t, err)

	reopened, err := Open(db, WithPendingSize(4))
	require.NoError(t, err)
	require.Equal(t, 2, reopened.PendingLen())

	stx, priority, err := reopened.PopPendingTx()
	require.NoError(t, err)
	require.Equal(t, uint64(4), priority)
	require.Equal(t, pendingTransfer(3).Hash(), stx.Hash())

	// Freed slots are reused after reload.
	queue(t, reopened, pendingTransfer(5), 1)
	queue(t, reopened, pendingTransfer(6), 1)
	queue(t, reopened, pendingTransfer(7), 1)
	require.Equal(t, 4, reopened.PendingLen())
}

func TestPending_Validated(t *testing.T) {
	l, _ := openMemory(t)
	reject := errors.New("invalid")

	_, err := l.AddPendingValidated(pendingTransfer(1), 1, func(View) error { return reject })
	require.ErrorIs(t, err, reject)
	require.Zero(t, l.PendingLen())

	slot, err := l.AddPendingValidated(pendingTransfer(1), 1, func(View) error { return nil })
	require.NoError(t, err)
	require.Equal(t, uint32(0), slot)
	require.Equal(t, 1, l.PendingLen())
}

func TestPending_StoresCopy(t *testing.T) {
	l, _ := openMemory(t)
	stx := pendingTransfer(1)
	queue(t, l, stx, 1)
	stx.Signatures[0] = []byte{0xFF}

	got, _, err := l.PopPendingTx()
	require.NoError(t, err)
	require.Equal(t, []byte{1}, got.Signatures[0])
}

func TestPending_SlotReuse(t *testing.T) {
	l, _ := openMemory(t, WithPendingSize(3))
	require.Equal(t, uint32(0), queue(t, l, pendingTransfer(1), 1))
	require.Equal(t, uint32(1), queue(t, l, pendingTransfer(2), 9))
	require.Equal(t, uint32(2), queue(t, l, pendingTransfer(3), 1))

	stx, _, err := l.PopPendingTx()
	require.NoError(t, err)
	require.Equal(t, pendingTransfer(2).Hash(), stx.Hash())

	require.Equal(t, uint32(1), queue(t, l, pendingTransfer(4), 1))
	slots := map[uint32]types.Hash{}
	for _, p := range l.PendingTxs() {
		slots[p.Slot] = p.Tx.Hash()
	}
	require.Equal(t, pendingTransfer(4).Hash(), slots[1])
	require.Len(t, slots, 3)
}

func TestPending_RejectsMalformed(t *testing.T) {
	l, _ := openMemory(t)
	stx := pendingTransfer(1)
	stx.Tx.Body().Outputs[0] = nil
	_, err := l.AddPendingTx(stx, 1)
	require.ErrorIs(t, err, tx.ErrMalformed)
	_, err = l.AddPendingTx(nil, 1)
	require.ErrorIs(t, err, tx.ErrMalformed)
	require.Zero(t, l.PendingLen())
}
