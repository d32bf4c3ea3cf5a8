package validation

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/xpeer-network/chasm/internal/consensus"
	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/tx"
)

// checkExchangeSpend applies the exchange output spend table. The
// receiver may spend once the exchange is no longer matched; the sender
// may reclaim while it is still matched, after ExchangeTimeout.
func checkExchangeSpend(c *Context, out *tx.XpeerOutput, sig []byte) error {
	m, matched := c.View.MatchedOffer(out.Exchange)
	if crypto.VerifySignature(c.Hash[:], sig, out.Receiver) {
		if matched {
			return fmt.Errorf("%w: exchange %s", ErrReceiverUseBeforeConfirmation, out.Exchange)
		}
		return nil
	}
	if !crypto.VerifySignature(c.Hash[:], sig, out.Sender) {
		return ErrBadSignature
	}
	if !matched {
		return fmt.Errorf("%w: exchange %s", ErrSenderUseAfterConfirmation, out.Exchange)
	}
	unlockAt := time.Unix(int64(m.Timestamp), 0).Add(consensus.ExchangeTimeout)
	if c.Now.Before(unlockAt) {
		return fmt.Errorf("%w: exchange %s unlocks at %s", ErrSenderUseBeforeTimeout,
			out.Exchange, unlockAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// checkDeposit requires the deposit to be a transfer worth at least ten
// times the transaction fee.
func checkDeposit(c *Context) error {
	e := c.Tx.(tx.Escrowed)
	outs := c.Tx.Body().Outputs
	idx := e.Deposit()
	if int(idx) >= len(outs) {
		return fmt.Errorf("%w: %d of %d outputs", ErrDepositIndex, idx, len(outs))
	}
	if _, ok := outs[idx].(*tx.TransferOutput); !ok {
		return fmt.Errorf("%w: output %d", ErrDepositType, idx)
	}
	fee := c.Fee()
	if fee > math.MaxUint64/10 {
		return fmt.Errorf("%w: fee %d", ErrDepositValue, fee)
	}
	if outs[idx].Amount() < fee*10 {
		return fmt.Errorf("%w: deposit %d, need %d", ErrDepositValue, outs[idx].Amount(), fee*10)
	}
	return nil
}

func checkConfirmationFee(c *Context) error {
	f := c.Tx.(tx.FeeCarrier)
	outs := c.Tx.Body().Outputs
	idx := f.ConfirmationFee()
	if int(idx) >= len(outs) {
		return fmt.Errorf("%w: index %d of %d outputs", ErrConfirmationFee, idx, len(outs))
	}
	if _, ok := outs[idx].(*tx.XpeerFeeOutput); !ok {
		return fmt.Errorf("%w: output %d", ErrConfirmationFee, idx)
	}
	return nil
}

func checkOfferTokens(c *Context) error {
	o := c.Tx.(*tx.OfferTx)
	if !o.TokenIn.Known() {
		return fmt.Errorf("%w: token_in %d", ErrUnknownToken, o.TokenIn)
	}
	if !o.TokenOut.Known() {
		return fmt.Errorf("%w: token_out %d", ErrUnknownToken, o.TokenOut)
	}
	return nil
}

func checkOfferTimeout(c *Context) error {
	o := c.Tx.(*tx.OfferTx)
	now := c.Now.Unix()
	if now >= 0 && o.Timeout <= uint64(now) {
		return fmt.Errorf("%w: timeout %d, now %d", ErrOfferExpired, o.Timeout, now)
	}
	return nil
}

func checkOfferNotActive(c *Context) error {
	if _, ok := c.View.ActiveOffer(c.Hash); ok {
		return fmt.Errorf("%w: %s", ErrOfferExists, c.Hash)
	}
	return nil
}

func checkOfferAddress(c *Context) error {
	o := c.Tx.(*tx.OfferTx)
	if !o.TokenOut.ValidAddress(o.AddressOut) {
		return fmt.Errorf("%w: %d bytes for %s", ErrAddressLength, len(o.AddressOut), o.TokenOut)
	}
	return nil
}

func checkMatchOffer(c *Context) error {
	m := c.Tx.(*tx.MatchTx)
	if _, ok := c.View.ActiveOffer(m.Exchange); !ok {
		return fmt.Errorf("%w: %s", ErrMatchUnknownOffer, m.Exchange)
	}
	return nil
}

func checkMatchAddress(c *Context) error {
	m := c.Tx.(*tx.MatchTx)
	offer, _ := c.View.ActiveOffer(m.Exchange)
	if !offer.TokenIn.ValidAddress(m.AddressIn) {
		return fmt.Errorf("%w: %d bytes for %s", ErrAddressLength, len(m.AddressIn), offer.TokenIn)
	}
	return nil
}

func checkConfirmationExchange(c *Context) error {
	conf := c.Tx.(*tx.ConfirmationTx)
	if _, ok := c.View.MatchedOffer(conf.Exchange); !ok {
		return fmt.Errorf("%w: %s", ErrConfirmationUnknownExchange, conf.Exchange)
	}
	return nil
}

func checkOnlyFeeInputs(c *Context) error {
	for i, out := range c.Inputs {
		if _, ok := out.(*tx.XpeerFeeOutput); !ok {
			return fmt.Errorf("%w: input %d", ErrConfirmationNonFee, i)
		}
	}
	return nil
}

func checkConfirmationProofs(c *Context) error {
	conf := c.Tx.(*tx.ConfirmationTx)
	m, _ := c.View.MatchedOffer(conf.Exchange)
	if err := c.Proofs.VerifyConfirmation(m, conf.TxInProof, conf.TxOutProof); err != nil {
		return fmt.Errorf("%w: %w", ErrProofRejected, err)
	}
	return nil
}

// checkUnlock validates an unlock against the state of its exchange. An
// active offer can be cancelled by its maker with the exchange hash as
// proof; a matched exchange needs a proof from the unlocking side.
func checkUnlock(c *Context) error {
	u := c.Tx.(*tx.UnlockingDepositTx)
	if m, ok := c.View.MatchedOffer(u.Exchange); ok {
		if u.ProofSide != tx.SideMaker && u.ProofSide != tx.SideTaker {
			return fmt.Errorf("%w: %d", ErrUnlockDepositUnknownProofSide, u.ProofSide)
		}
		if err := c.Proofs.VerifyUnlock(m, u.ProofSide, u.TxProof); err != nil {
			return fmt.Errorf("%w: %w", ErrProofRejected, err)
		}
		return nil
	}
	// Cancelling an active offer needs only the exchange hash, so anyone
	// may do it. The offer's deposit moves back to UTXO unchanged and stays
	// spendable only by its receiver, the maker.
	if _, ok := c.View.ActiveOffer(u.Exchange); ok {
		if !bytes.Equal(u.TxProof, u.Exchange[:]) {
			return fmt.Errorf("%w: %s", ErrUnlockDepositActiveOffer, u.Exchange)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnlockDepositUnknownExchange, u.Exchange)
}
