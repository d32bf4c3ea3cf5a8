package tx

import (
	"errors"
	"fmt"
)

// ErrMalformed marks a transaction that cannot be encoded and so has no
// hash.
var ErrMalformed = errors.New("malformed transaction")

// CheckWellFormed reports whether s can be encoded. Hash, Size and Clone
// assume it can; call this first on transactions from outside the process.
func CheckWellFormed(s *Signed) error {
	if s == nil || isNilTx(s.Tx) {
		return fmt.Errorf("%w: nil transaction", ErrMalformed)
	}
	for i, o := range s.Tx.Body().Outputs {
		if isNilOutput(o) {
			return fmt.Errorf("%w: output %d is nil", ErrMalformed, i)
		}
	}
	if _, err := EncodeSigned(s); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

func isNilTx(t Transaction) bool {
	switch v := t.(type) {
	case nil:
		return true
	case *TransferTx:
		return v == nil
	case *MintingTx:
		return v == nil
	case *OfferTx:
		return v == nil
	case *MatchTx:
		return v == nil
	case *ConfirmationTx:
		return v == nil
	case *UnlockingDepositTx:
		return v == nil
	}
	return false
}

func isNilOutput(o Output) bool {
	switch v := o.(type) {
	case nil:
		return true
	case *TransferOutput:
		return v == nil
	case *XpeerOutput:
		return v == nil
	case *XpeerFeeOutput:
		return v == nil
	}
	return false
}
