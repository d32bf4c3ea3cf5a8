// Package validation checks transactions and blocks against ledger state.
//
// Each transaction variant has an ordered rule set; the first failing rule
// rejects the transaction with one of the sentinel errors below, wrapped
// with the rule name and detail.
package validation

import "errors"

// Structural errors.
var (
	ErrTxTooLarge      = errors.New("transaction too large")
	ErrDuplicateInput  = errors.New("duplicate input")
	ErrNonexistentUTXO = errors.New("input spends nonexistent utxo")
	ErrOutputOverflow  = errors.New("output values overflow")
)

// Economic errors.
var (
	ErrInsufficientInputs = errors.New("inputs do not cover outputs")
	ErrDepositIndex       = errors.New("deposit index out of range")
	ErrDepositType        = errors.New("deposit output is not a transfer")
	ErrDepositValue       = errors.New("deposit below ten times the fee")
	ErrConfirmationFee    = errors.New("confirmation fee output missing or not a fee output")
)

// Output and input shape errors.
var (
	ErrBadReceiver          = errors.New("receiver address has wrong length")
	ErrBadSender            = errors.New("sender address has wrong length")
	ErrExchangeNotMatched   = errors.New("sent exchange output without a matched exchange")
	ErrFeeOutputNotAllowed  = errors.New("fee output only allowed on offer and match")
	ErrFeeInputNotAllowed   = errors.New("fee output spent outside a confirmation")
	ErrConfirmationNonFee   = errors.New("confirmation must only spend fee outputs")
	ErrUnknownOutputType    = errors.New("unknown output type")
	ErrUnknownToken         = errors.New("unknown token")
	ErrAddressLength        = errors.New("address length does not match token")
	ErrUnsupportedVariant   = errors.New("unsupported transaction variant")
	ErrMintingOutsideBlock  = errors.New("minting transaction outside a block")
	ErrMintingHasInputs     = errors.New("minting transaction has inputs")
	ErrMintingHasSignatures = errors.New("minting transaction has signatures")
	ErrMintingHeight        = errors.New("minting height does not match block")
	ErrMintingValue         = errors.New("minting exceeds reward plus fees")
)

// Exchange protocol errors.
var (
	ErrOfferExpired                  = errors.New("offer timeout is not in the future")
	ErrOfferExists                   = errors.New("offer already active")
	ErrMatchUnknownOffer             = errors.New("match of nonexistent offer")
	ErrConfirmationUnknownExchange   = errors.New("confirmation of unknown exchange")
	ErrMissingProof                  = errors.New("missing proof")
	ErrProofRejected                 = errors.New("proof rejected")
	ErrUnlockDepositActiveOffer      = errors.New("unlock of active offer must carry the exchange hash as proof")
	ErrUnlockDepositUnknownProofSide = errors.New("unlock proof side must be maker or taker")
	ErrUnlockDepositUnknownExchange  = errors.New("unlock of unknown exchange")
)

// Authorization errors.
var (
	ErrSignatureCount                = errors.New("signature count does not match inputs")
	ErrBadSignature                  = errors.New("invalid signature")
	ErrReceiverUseBeforeConfirmation = errors.New("receiver spent exchange output before confirmation")
	ErrSenderUseBeforeTimeout        = errors.New("sender spent exchange output before timeout")
	ErrSenderUseAfterConfirmation    = errors.New("sender spent exchange output after confirmation")
)

// Block errors.
var (
	ErrPrevHash              = errors.New("previous hash does not match tip")
	ErrTimestampBeforeParent = errors.New("block timestamp before parent")
	ErrExchangeConflict      = errors.New("exchange touched twice in block")
)
