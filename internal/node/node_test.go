package node

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xpeer-network/chasm/config"
	"github.com/xpeer-network/chasm/internal/consensus"
	"github.com/xpeer-network/chasm/internal/ledger"
	"github.com/xpeer-network/chasm/internal/storage"
	"github.com/xpeer-network/chasm/internal/validation"
	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		input, want string
	}{
		{"~/foo/bar", filepath.Join(home, "foo/bar")},
		{"~/.chasm/ledger", filepath.Join(home, ".chasm/ledger")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolveCoinbase(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	addr, err := resolveCoinbase(key.Address().String())
	require.NoError(t, err)
	require.True(t, addr.Equal(key.Address()))

	_, err = resolveCoinbase("")
	require.Error(t, err)
	_, err = resolveCoinbase("abcd")
	require.Error(t, err)
}

var testNow = time.Unix(1_700_000_000, 0)

type testNode struct {
	*Node
	key *crypto.PrivateKey
}

func newTestNode(t *testing.T, mutate func(*config.Config), opts ...Option) *testNode {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Difficulty = 0
	cfg.Mining.Coinbase = key.Address().String()
	if mutate != nil {
		mutate(cfg)
	}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	n, err := NewWithDB(cfg, storage.NewMemory(), opts...)
	require.NoError(t, err)
	t.Cleanup(n.Stop)
	return &testNode{Node: n, key: key}
}

// spendReward spends the minting output of blk back to the coinbase
// owner, leaving fee behind.
func (n *testNode) spendReward(t *testing.T, blk *block.Block, fee uint64) *tx.Signed {
	t.Helper()
	op := types.Outpoint{TxID: blk.Transactions[0].Hash(), Index: 0}
	value := blk.Transactions[0].Tx.Body().Outputs[0].Amount()
	transfer := tx.NewBuilder().AddInput(op).AddTransfer(value-fee, n.key.Address()).Transfer()
	stx, err := tx.Sign(transfer, n.key)
	require.NoError(t, err)
	return stx
}

func TestNode_MineAndSubmit(t *testing.T) {
	n := newTestNode(t, nil)
	ctx := context.Background()

	first, err := n.MineBlock(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n.Height())
	require.True(t, n.Coinbase().Equal(n.key.Address()))

	stx := n.spendReward(t, first, 7)
	slot, err := n.SubmitTransaction(stx, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(0), slot)
	require.Equal(t, 1, n.Ledger().PendingLen())

	second, err := n.MineBlock(ctx)
	require.NoError(t, err)
	require.Len(t, second.Transactions, 2)
	require.Equal(t, consensus.MintingValue(2)+7, second.Transactions[0].Tx.Body().Outputs[0].Amount())
	require.Zero(t, n.Ledger().PendingLen())

	loc, ok := n.Ledger().TxLocation(stx.Hash())
	require.True(t, ok)
	require.Equal(t, uint64(2), loc.Height)
}

func TestNode_SubmitTransactionRejects(t *testing.T) {
	n := newTestNode(t, nil)

	missing := tx.NewBuilder().
		AddInput(types.Outpoint{TxID: types.Hash{0x01}}).
		AddTransfer(1, n.key.Address()).
		Transfer()
	stx, err := tx.Sign(missing, n.key)
	require.NoError(t, err)

	_, err = n.SubmitTransaction(stx, 1)
	require.ErrorIs(t, err, validation.ErrNonexistentUTXO)
	_, err = n.SubmitTransaction(nil, 1)
	require.ErrorIs(t, err, validation.ErrUnsupportedVariant)

	stx.Tx.Body().Outputs[0] = nil
	_, err = n.SubmitTransaction(stx, 1)
	require.ErrorIs(t, err, tx.ErrMalformed)
	require.Zero(t, n.Ledger().PendingLen())
}

func TestNode_SubmitBlockRejects(t *testing.T) {
	n := newTestNode(t, nil)
	_, err := n.MineBlock(context.Background())
	require.NoError(t, err)
	before := n.Ledger().StateRoot()

	mint := tx.Unsigned(tx.NewBuilder().AddTransfer(consensus.MintingValue(2)+1, n.key.Address()).Minting(2))
	tip := n.Ledger().Tip()
	blk := block.NewBlock(&block.Header{
		PrevHash:  tip.Hash(),
		Timestamp: tip.Header.Timestamp + 1,
	}, []*tx.Signed{mint})
	blk.Header.MerkleRoot = block.ComputeMerkleRoot(blk.TxHashes())

	require.ErrorIs(t, n.SubmitBlock(blk), validation.ErrMintingValue)
	require.Equal(t, uint64(1), n.Height())
	require.Equal(t, before, n.Ledger().StateRoot())

	// The same block minting the exact reward is accepted.
	mint.Tx.Body().Outputs[0].(*tx.TransferOutput).Value--
	blk.Header.MerkleRoot = block.ComputeMerkleRoot(blk.TxHashes())
	require.NoError(t, n.SubmitBlock(blk))
	require.Equal(t, uint64(2), n.Height())
}

func TestNode_MiningDisabled(t *testing.T) {
	n := newTestNode(t, func(c *config.Config) { c.Mining.Coinbase = "" })
	_, err := n.MineBlock(context.Background())
	require.ErrorIs(t, err, ErrMiningDisabled)
	require.Nil(t, n.Coinbase())

	n.cfg.Mining.Enabled = true
	require.ErrorIs(t, n.Start(), ErrMiningDisabled)
}

func TestNode_MinerLoop(t *testing.T) {
	n := newTestNode(t, func(c *config.Config) {
		c.Mining.Enabled = true
		c.Mining.Interval = 10 * time.Millisecond
	})
	require.NoError(t, n.Start())
	require.Eventually(t, func() bool { return n.Height() >= 3 }, 5*time.Second, 10*time.Millisecond)
}

func TestNew_Badger(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Difficulty = 0
	cfg.Mining.Coinbase = key.Address().String()
	require.NoError(t, config.EnsureDataDirs(cfg))

	n, err := New(cfg)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n.Height())
	require.Equal(t, block.Genesis().Hash(), n.Ledger().Tip().Hash())
	blk, err := n.MineBlock(context.Background())
	require.NoError(t, err)
	root := n.Ledger().StateRoot()
	n.Stop()

	// Reopening restores the same chain and state.
	n, err = New(cfg)
	require.NoError(t, err)
	defer n.Stop()
	require.Equal(t, blk.Hash(), n.Ledger().Tip().Hash())
	require.Equal(t, root, n.Ledger().StateRoot())
}

// rewardOf returns the minting outpoint of blk and its value.
func rewardOf(blk *block.Block) (types.Outpoint, uint64) {
	return types.Outpoint{TxID: blk.Transactions[0].Hash(), Index: 0},
		blk.Transactions[0].Tx.Body().Outputs[0].Amount()
}

// offer spends the reward of funding into an offer with the given deposit,
// a confirmation fee output of 5 and an implicit fee.
func (n *testNode) offer(t *testing.T, funding *block.Block, deposit, fee uint64) *tx.Signed {
	t.Helper()
	in, value := rewardOf(funding)
	offer := &tx.OfferTx{
		Base: tx.NewBuilder().
			AddInput(in).
			AddTransfer(deposit, n.key.Address()).
			AddFee(5).
			AddTransfer(value-deposit-5-fee, n.key.Address()).
			Base(),
		TokenIn:              types.TokenXpeer,
		TokenOut:             types.TokenBitcoin,
		ValueIn:              500,
		ValueOut:             1,
		AddressOut:           make([]byte, 32),
		Timeout:              uint64(testNow.Unix()) + 3600,
		DepositIndex:         0,
		ConfirmationFeeIndex: 1,
	}
	stx, err := tx.Sign(offer, n.key)
	require.NoError(t, err)
	return stx
}

func (n *testNode) match(t *testing.T, funding *block.Block, exchange types.Hash) *tx.Signed {
	t.Helper()
	in, value := rewardOf(funding)
	match := &tx.MatchTx{
		Base: tx.NewBuilder().
			AddInput(in).
			AddTransfer(100, n.key.Address()).
			AddFee(10).
			AddTransfer(value-120, n.key.Address()).
			Base(),
		Exchange:             exchange,
		AddressIn:            make([]byte, types.AddressSize),
		DepositIndex:         0,
		ConfirmationFeeIndex: 1,
	}
	stx, err := tx.Sign(match, n.key)
	require.NoError(t, err)
	return stx
}

func (n *testNode) unlock(t *testing.T, funding *block.Block, exchange types.Hash, side tx.Side, proof []byte) *tx.Signed {
	t.Helper()
	in, value := rewardOf(funding)
	unlock := &tx.UnlockingDepositTx{
		Base:         tx.NewBuilder().AddInput(in).AddTransfer(value-1, n.key.Address()).Base(),
		Exchange:     exchange,
		ProofSide:    side,
		TxProof:      proof,
		DepositIndex: 0,
	}
	stx, err := tx.Sign(unlock, n.key)
	require.NoError(t, err)
	return stx
}

func (n *testNode) mine(t *testing.T) *block.Block {
	t.Helper()
	blk, err := n.MineBlock(context.Background())
	require.NoError(t, err)
	return blk
}

func TestNode_OfferDepositBoundary(t *testing.T) {
	n := newTestNode(t, nil)
	funding := n.mine(t)
	_, value := rewardOf(funding)

	// A fee of 3 needs a deposit of at least 30.
	_, err := n.SubmitTransaction(n.offer(t, funding, 12, 3), 1)
	require.ErrorIs(t, err, validation.ErrDepositValue)
	require.Zero(t, n.Ledger().PendingLen())

	offer := n.offer(t, funding, 30, 3)
	_, err = n.SubmitTransaction(offer, 1)
	require.NoError(t, err)
	blk := n.mine(t)
	require.Len(t, blk.Transactions, 2)
	require.Equal(t, consensus.MintingValue(2)+3, blk.Transactions[0].Tx.Body().Outputs[0].Amount())

	l := n.Ledger()
	exchange := offer.Hash()
	_, spent := l.UTXO(types.Outpoint{TxID: funding.Transactions[0].Hash(), Index: 0})
	require.False(t, spent, "funding output consumed")

	deposit, ok := l.DUTXO(types.Outpoint{TxID: exchange, Index: 0})
	require.True(t, ok)
	require.Equal(t, uint64(30), deposit.Amount())
	_, ok = l.UTXO(types.Outpoint{TxID: exchange, Index: 0})
	require.False(t, ok, "deposit is escrowed, not spendable")

	fee, ok := l.UTXO(types.Outpoint{TxID: exchange, Index: 1})
	require.True(t, ok)
	require.IsType(t, &tx.XpeerFeeOutput{}, fee)
	require.Equal(t, uint64(5), fee.Amount())

	change, ok := l.UTXO(types.Outpoint{TxID: exchange, Index: 2})
	require.True(t, ok)
	require.Equal(t, value-38, change.Amount())

	require.Contains(t, l.ActiveOffers(), exchange)
}

// rejectProofs refuses every cross-chain proof.
type rejectProofs struct{}

func (rejectProofs) VerifyConfirmation(*ledger.MatchedOffer, []byte, []byte) error {
	return validation.ErrProofRejected
}

func (rejectProofs) VerifyUnlock(*ledger.MatchedOffer, tx.Side, []byte) error {
	return validation.ErrProofRejected
}

func TestNode_SubmitBlockExchangeConflict(t *testing.T) {
	n := newTestNode(t, nil, WithProofVerifier(rejectProofs{}))
	offerFunds, matchFunds, unlockFunds := n.mine(t), n.mine(t), n.mine(t)

	offer := n.offer(t, offerFunds, 100, 10)
	_, err := n.SubmitTransaction(offer, 1)
	require.NoError(t, err)
	n.mine(t)
	exchange := offer.Hash()

	l := n.Ledger()
	tip := l.Tip()
	height := l.Height() + 1
	match := n.match(t, matchFunds, exchange)
	// Valid as a cancel against the pre-block state, where the offer is active.
	unlock := n.unlock(t, unlockFunds, exchange, tx.SideTaker, exchange.Bytes())
	mint := tx.Unsigned(tx.NewBuilder().AddTransfer(consensus.MintingValue(height), n.key.Address()).Minting(height))
	blk := block.NewBlock(&block.Header{
		PrevHash:  tip.Hash(),
		Timestamp: tip.Header.Timestamp + 1,
	}, []*tx.Signed{mint, match, unlock})
	blk.Header.MerkleRoot = block.ComputeMerkleRoot(blk.TxHashes())

	before := l.StateRoot()
	require.ErrorIs(t, n.SubmitBlock(blk), validation.ErrExchangeConflict)
	require.Equal(t, height-1, n.Height())
	require.Equal(t, before, l.StateRoot())
	require.Contains(t, l.ActiveOffers(), exchange)
	require.Empty(t, l.MatchedOffers())

	// One at a time, the unlock of the matched exchange must pass the verifier.
	_, err = n.SubmitTransaction(match, 1)
	require.NoError(t, err)
	n.mine(t)
	require.Contains(t, l.MatchedOffers(), exchange)

	_, err = n.SubmitTransaction(unlock, 1)
	require.ErrorIs(t, err, validation.ErrProofRejected)
	_, ok := l.DUTXO(types.Outpoint{TxID: match.Hash(), Index: 0})
	require.True(t, ok, "taker deposit stays escrowed")
}
