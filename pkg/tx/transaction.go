// Package tx defines the transaction variants of the Chasm ledger and
// their canonical encoding.
package tx

import (
	"bytes"

	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Side selects a party of an exchange.
type Side uint8

const (
	// SideMaker is the party that posted the offer.
	SideMaker Side = 0
	// SideTaker is the party that matched it.
	SideTaker Side = 1
)

// Input references a UTXO being spent.
type Input struct {
	PrevOut types.Outpoint `json:"prevout"`
}

// Base holds the fields shared by every transaction variant.
type Base struct {
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
}

// Body returns the shared fields. It lets every variant satisfy Transaction
// through embedding.
func (b *Base) Body() *Base { return b }

func (b *Base) clone() Base {
	cp := Base{Outputs: cloneOutputs(b.Outputs)}
	if b.Inputs != nil {
		cp.Inputs = make([]Input, len(b.Inputs))
		copy(cp.Inputs, b.Inputs)
	}
	return cp
}

// Transaction is one of TransferTx, MintingTx, OfferTx, MatchTx,
// ConfirmationTx or UnlockingDepositTx.
type Transaction interface {
	Tag() Tag
	Body() *Base
	Clone() Transaction
}

// Escrowed is implemented by the variants whose output at Deposit() is
// held in escrow rather than becoming spendable.
type Escrowed interface {
	Transaction
	Deposit() uint32
}

// FeeCarrier is implemented by the variants that must fund the
// confirmation of their exchange.
type FeeCarrier interface {
	Transaction
	ConfirmationFee() uint32
}

// TransferTx is a plain value transfer.
type TransferTx struct {
	Base
}

// MintingTx issues the block reward. It has no inputs.
type MintingTx struct {
	Base
	Height uint64 `json:"height"`
}

// OfferTx posts an offer to trade ValueIn of TokenIn for ValueOut of
// TokenOut. Its hash identifies the exchange.
type OfferTx struct {
	Base
	TokenIn              types.Token `json:"token_in"`
	TokenOut             types.Token `json:"token_out"`
	ValueIn              uint64      `json:"value_in"`
	ValueOut             uint64      `json:"value_out"`
	AddressOut           []byte      `json:"address_out"`
	Timeout              uint64      `json:"timeout"`
	DepositIndex         uint32      `json:"deposit_index"`
	ConfirmationFeeIndex uint32      `json:"confirmation_fee_index"`
}

// MatchTx accepts an active offer.
type MatchTx struct {
	Base
	Exchange             types.Hash `json:"exchange"`
	AddressIn            []byte     `json:"address_in"`
	DepositIndex         uint32     `json:"deposit_index"`
	ConfirmationFeeIndex uint32     `json:"confirmation_fee_index"`
}

// ConfirmationTx resolves a matched exchange with proofs of both legs.
type ConfirmationTx struct {
	Base
	Exchange   types.Hash `json:"exchange"`
	TxInProof  []byte     `json:"tx_in_proof"`
	TxOutProof []byte     `json:"tx_out_proof"`
}

// UnlockingDepositTx resolves an exchange unilaterally. For a matched
// exchange the deposit of ProofSide is released; for an active offer it
// cancels the offer and TxProof must equal the exchange hash.
type UnlockingDepositTx struct {
	Base
	Exchange     types.Hash `json:"exchange"`
	ProofSide    Side       `json:"proof_side"`
	TxProof      []byte     `json:"tx_proof"`
	DepositIndex uint32     `json:"deposit_index"`
}

func (t *TransferTx) Tag() Tag         { return TagTransfer }
func (t *MintingTx) Tag() Tag          { return TagMinting }
func (t *OfferTx) Tag() Tag            { return TagOffer }
func (t *MatchTx) Tag() Tag            { return TagMatch }
func (t *ConfirmationTx) Tag() Tag     { return TagConfirmation }
func (t *UnlockingDepositTx) Tag() Tag { return TagUnlockingDeposit }

func (t *OfferTx) Deposit() uint32            { return t.DepositIndex }
func (t *MatchTx) Deposit() uint32            { return t.DepositIndex }
func (t *UnlockingDepositTx) Deposit() uint32 { return t.DepositIndex }

func (t *OfferTx) ConfirmationFee() uint32 { return t.ConfirmationFeeIndex }
func (t *MatchTx) ConfirmationFee() uint32 { return t.ConfirmationFeeIndex }

func (t *TransferTx) Clone() Transaction {
	return &TransferTx{Base: t.Base.clone()}
}

func (t *MintingTx) Clone() Transaction {
	return &MintingTx{Base: t.Base.clone(), Height: t.Height}
}

func (t *OfferTx) Clone() Transaction {
	cp := *t
	cp.Base = t.Base.clone()
	cp.AddressOut = bytes.Clone(t.AddressOut)
	return &cp
}

func (t *MatchTx) Clone() Transaction {
	cp := *t
	cp.Base = t.Base.clone()
	cp.AddressIn = bytes.Clone(t.AddressIn)
	return &cp
}

func (t *ConfirmationTx) Clone() Transaction {
	cp := *t
	cp.Base = t.Base.clone()
	cp.TxInProof = bytes.Clone(t.TxInProof)
	cp.TxOutProof = bytes.Clone(t.TxOutProof)
	return &cp
}

func (t *UnlockingDepositTx) Clone() Transaction {
	cp := *t
	cp.Base = t.Base.clone()
	cp.TxProof = bytes.Clone(t.TxProof)
	return &cp
}

// Hash computes the transaction ID: BLAKE3 of the tagged encoding.
// Signatures live in the Signed envelope and are not covered.
func Hash(t Transaction) types.Hash {
	return crypto.Hash(mustEncode(Encode(t)))
}

// Exchange returns the exchange a transaction refers to: its own hash
// for an offer, the referenced offer hash for the other exchange variants.
func Exchange(t Transaction) (types.Hash, bool) {
	switch v := t.(type) {
	case *OfferTx:
		return Hash(v), true
	case *MatchTx:
		return v.Exchange, true
	case *ConfirmationTx:
		return v.Exchange, true
	case *UnlockingDepositTx:
		return v.Exchange, true
	default:
		return types.Hash{}, false
	}
}

// Outpoints lists the outpoints spent by t.
func Outpoints(t Transaction) []types.Outpoint {
	ins := t.Body().Inputs
	ops := make([]types.Outpoint, len(ins))
	for i, in := range ins {
		ops[i] = in.PrevOut
	}
	return ops
}
