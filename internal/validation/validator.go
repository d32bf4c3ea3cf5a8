package validation

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xpeer-network/chasm/internal/consensus"
	"github.com/xpeer-network/chasm/internal/ledger"
	"github.com/xpeer-network/chasm/internal/log"
	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/tx"
)

// Validator checks transactions and blocks against a ledger.View.
type Validator struct {
	pow    *consensus.PoW
	proofs ProofVerifier
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock replaces the wall clock used for offer and exchange timeouts.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithProofVerifier replaces the foreign-chain proof verifier.
func WithProofVerifier(p ProofVerifier) Option {
	return func(v *Validator) { v.proofs = p }
}

// New creates a validator that checks block headers with pow.
func New(pow *consensus.PoW, opts ...Option) *Validator {
	v := &Validator{
		pow:    pow,
		proofs: NonEmptyProofs{},
		now:    time.Now,
		logger: log.Validation,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) newContext(view ledger.View, stx *tx.Signed, now time.Time) *Context {
	return &Context{
		Tx:         stx.Tx,
		Signatures: stx.Signatures,
		Hash:       stx.Hash(),
		Size:       stx.Size(),
		View:       view,
		Now:        now,
		Proofs:     v.proofs,
	}
}

// ValidateTransaction checks a standalone transaction. Minting
// transactions are only valid inside a block and are rejected.
func (v *Validator) ValidateTransaction(view ledger.View, stx *tx.Signed) error {
	_, err := v.validateTx(view, stx, v.now(), nil)
	if err != nil {
		v.logger.Debug().Err(err).Msg("Transaction rejected")
	}
	return err
}

// TransactionCheck returns ValidateTransaction bound to stx, in the form
// the ledger runs under its lock.
func (v *Validator) TransactionCheck(stx *tx.Signed) func(ledger.View) error {
	return func(view ledger.View) error {
		return v.ValidateTransaction(view, stx)
	}
}

func (v *Validator) validateTx(view ledger.View, stx *tx.Signed, now time.Time, bc *BlockContext) (*Context, error) {
	if stx == nil || stx.Tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrUnsupportedVariant)
	}
	if err := tx.CheckWellFormed(stx); err != nil {
		return nil, err
	}
	rs, err := RulesFor(stx.Tx)
	if err != nil {
		return nil, err
	}
	ctx := v.newContext(view, stx, now)
	ctx.Block = bc
	if err := rs.Run(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// ValidateBlock checks blk as the next block on view. Every transaction
// is validated against the state before the block.
func (v *Validator) ValidateBlock(view ledger.View, blk *block.Block) error {
	err := v.validateBlock(view, blk)
	if err != nil {
		v.logger.Debug().Err(err).Msg("Block rejected")
	}
	return err
}

// BlockCheck returns ValidateBlock bound to blk.
func (v *Validator) BlockCheck(blk *block.Block) func(ledger.View) error {
	return func(view ledger.View) error {
		return v.ValidateBlock(view, blk)
	}
}

func (v *Validator) validateBlock(view ledger.View, blk *block.Block) error {
	if blk == nil || blk.Header == nil {
		return block.ErrNilHeader
	}
	parentHeight := view.Height()
	height := parentHeight + 1
	parent, ok := view.HeaderAt(parentHeight)
	if !ok {
		return fmt.Errorf("missing tip header at height %d", parentHeight)
	}

	if blk.Header.PrevHash != parent.Hash() {
		return fmt.Errorf("%w: block %s, tip %s", ErrPrevHash, blk.Header.PrevHash, parent.Hash())
	}
	if blk.Header.Timestamp < parent.Timestamp {
		return fmt.Errorf("%w: %d < %d", ErrTimestampBeforeParent, blk.Header.Timestamp, parent.Timestamp)
	}

	timestampAt := func(h uint64) (uint64, error) {
		hdr, ok := view.HeaderAt(h)
		if !ok {
			return 0, fmt.Errorf("no header at height %d", h)
		}
		return hdr.Timestamp, nil
	}
	if err := v.pow.VerifyDifficulty(blk.Header, height, parent.Difficulty, timestampAt); err != nil {
		return err
	}
	if err := v.pow.VerifyHeader(blk.Header); err != nil {
		return err
	}
	if err := blk.Validate(); err != nil {
		return err
	}

	now := v.now()
	bc := &BlockContext{Height: height}
	claims := NewExchangeClaims()
	for i, stx := range blk.Transactions[1:] {
		if err := claims.Claim(view, stx); err != nil {
			return fmt.Errorf("block tx %d: %w", i+1, err)
		}
		ctx, err := v.validateTx(view, stx, now, nil)
		if err != nil {
			return fmt.Errorf("block tx %d: %w", i+1, err)
		}
		fee := ctx.Fee()
		if bc.Fees+fee < bc.Fees {
			return fmt.Errorf("block tx %d: %w: fees overflow", i+1, ErrOutputOverflow)
		}
		bc.Fees += fee
	}
	if _, err := v.validateTx(view, blk.Transactions[0], now, bc); err != nil {
		return fmt.Errorf("block minting: %w", err)
	}
	return nil
}

// IsBlockConsensusError reports whether err rejects a block for header
// reasons rather than for its transactions.
func IsBlockConsensusError(err error) bool {
	return errors.Is(err, ErrPrevHash) ||
		errors.Is(err, ErrTimestampBeforeParent) ||
		errors.Is(err, consensus.ErrBadDifficulty) ||
		errors.Is(err, consensus.ErrInsufficientWork) ||
		errors.Is(err, block.ErrBlockTooLarge)
}
