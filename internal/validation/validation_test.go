package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xpeer-network/chasm/internal/consensus"
	"github.com/xpeer-network/chasm/internal/ledger"
	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

type fixture struct {
	t     *testing.T
	view  *ledger.Snapshot
	v     *Validator
	now   time.Time
	alice *crypto.PrivateKey
	bob   *crypto.PrivateKey
	carol *crypto.PrivateKey
	next  byte
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{t: t, view: ledger.NewSnapshot(), now: time.Unix(1_700_000_000, 0)}
	for _, k := range []**crypto.PrivateKey{&f.alice, &f.bob, &f.carol} {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		*k = key
	}
	pow, err := consensus.NewDefaultPoW(0)
	require.NoError(t, err)
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	f.v = New(pow, opts...)
	return f
}

// outpoint returns a fresh outpoint holding out.
func (f *fixture) outpoint(out tx.Output) types.Outpoint {
	f.next++
	op := types.Outpoint{TxID: types.Hash{0xF0, f.next}, Index: 0}
	f.view.UTXOs[op] = out
	return op
}

func (f *fixture) fund(key *crypto.PrivateKey, value uint64) types.Outpoint {
	return f.outpoint(&tx.TransferOutput{Value: value, Receiver: key.Address()})
}

func (f *fixture) sign(t tx.Transaction, signers ...crypto.Signer) *tx.Signed {
	f.t.Helper()
	stx, err := tx.Sign(t, signers...)
	require.NoError(f.t, err)
	return stx
}

func (f *fixture) validate(stx *tx.Signed) error {
	return f.v.ValidateTransaction(f.view, stx)
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	bobAddr := f.bob.Address()

	tests := []struct {
		name  string
		build func() *tx.Signed
		want  error
	}{
		{
			name: "valid",
			build: func() *tx.Signed {
				in := f.fund(f.alice, 100)
				return f.sign(tx.NewBuilder().AddInput(in).AddTransfer(90, bobAddr).Transfer(), f.alice)
			},
		},
		{
			name: "duplicate input",
			build: func() *tx.Signed {
				in := f.fund(f.alice, 100)
				return f.sign(tx.NewBuilder().AddInput(in).AddInput(in).AddTransfer(90, bobAddr).Transfer(), f.alice, f.alice)
			},
			want: ErrDuplicateInput,
		},
		{
			name: "nonexistent utxo",
			build: func() *tx.Signed {
				in := types.Outpoint{TxID: types.Hash{0x01}}
				return f.sign(tx.NewBuilder().AddInput(in).AddTransfer(1, bobAddr).Transfer(), f.alice)
			},
			want: ErrNonexistentUTXO,
		},
		{
			name: "insufficient inputs",
			build: func() *tx.Signed {
				in := f.fund(f.alice, 100)
				return f.sign(tx.NewBuilder().AddInput(in).AddTransfer(101, bobAddr).Transfer(), f.alice)
			},
			want: ErrInsufficientInputs,
		},
		{
			name: "output overflow",
			build: func() *tx.Signed {
				in := f.fund(f.alice, 100)
				b := tx.NewBuilder().AddInput(in).AddTransfer(^uint64(0), bobAddr).AddTransfer(2, bobAddr)
				return f.sign(b.Transfer(), f.alice)
			},
			want: ErrOutputOverflow,
		},
		{
			name: "signature count",
			build: func() *tx.Signed {
				in := f.fund(f.alice, 100)
				stx := f.sign(tx.NewBuilder().AddInput(in).AddTransfer(90, bobAddr).Transfer(), f.alice)
				stx.Signatures = append(stx.Signatures, []byte{1})
				return stx
			},
			want: ErrSignatureCount,
		},
		{
			name: "wrong signer",
			build: func() *tx.Signed {
				in := f.fund(f.alice, 100)
				return f.sign(tx.NewBuilder().AddInput(in).AddTransfer(90, bobAddr).Transfer(), f.bob)
			},
			want: ErrBadSignature,
		},
		{
			name: "short receiver",
			build: func() *tx.Signed {
				in := f.fund(f.alice, 100)
				return f.sign(tx.NewBuilder().AddInput(in).AddTransfer(90, make(types.Address, 20)).Transfer(), f.alice)
			},
			want: ErrBadReceiver,
		},
		{
			name: "fee output",
			build: func() *tx.Signed {
				in := f.fund(f.alice, 100)
				return f.sign(tx.NewBuilder().AddInput(in).AddFee(10).Transfer(), f.alice)
			},
			want: ErrFeeOutputNotAllowed,
		},
		{
			name: "fee input",
			build: func() *tx.Signed {
				in := f.outpoint(&tx.XpeerFeeOutput{Value: 10})
				return f.sign(tx.NewBuilder().AddInput(in).AddTransfer(5, bobAddr).Transfer(), nil)
			},
			want: ErrFeeInputNotAllowed,
		},
		{
			name: "exchange output without matched exchange",
			build: func() *tx.Signed {
				in := f.fund(f.alice, 100)
				b := tx.NewBuilder().AddInput(in).AddXpeer(50, bobAddr, f.alice.Address(), types.Hash{0x77})
				return f.sign(b.Transfer(), f.alice)
			},
			want: ErrExchangeNotMatched,
		},
		{
			name: "too large",
			build: func() *tx.Signed {
				in := f.fund(f.alice, 100)
				return f.sign(tx.NewBuilder().AddInput(in).AddTransfer(1, make(types.Address, MaxTxSize)).Transfer(), f.alice)
			},
			want: ErrTxTooLarge,
		},
		{
			name: "standalone minting",
			build: func() *tx.Signed {
				return tx.Unsigned(tx.NewBuilder().AddTransfer(1, bobAddr).Minting(1))
			},
			want: ErrMintingOutsideBlock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.validate(tt.build())
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransactionCheck(t *testing.T) {
	f := newFixture(t)
	in := f.fund(f.alice, 10)
	stx := f.sign(tx.NewBuilder().AddInput(in).AddTransfer(10, f.bob.Address()).Transfer(), f.alice)

	require.NoError(t, f.v.TransactionCheck(stx)(f.view))
	delete(f.view.UTXOs, in)
	require.ErrorIs(t, f.v.TransactionCheck(stx)(f.view), ErrNonexistentUTXO)
}

func TestValidateTransaction_Malformed(t *testing.T) {
	f := newFixture(t)
	in := f.fund(f.alice, 10)
	stx := f.sign(tx.NewBuilder().AddInput(in).AddTransfer(10, f.bob.Address()).Transfer(), f.alice)
	stx.Tx.Body().Outputs[0] = nil

	require.ErrorIs(t, f.validate(stx), tx.ErrMalformed)
	require.ErrorIs(t, f.validate(nil), ErrUnsupportedVariant)
}

func TestRulesFor_Unsupported(t *testing.T) {
	_, err := RulesFor(nil)
	require.ErrorIs(t, err, ErrUnsupportedVariant)
}
