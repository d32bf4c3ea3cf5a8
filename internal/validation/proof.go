package validation

import (
	"fmt"

	"github.com/xpeer-network/chasm/internal/ledger"
	"github.com/xpeer-network/chasm/pkg/tx"
)

// ProofVerifier checks proofs of payments made on foreign chains.
type ProofVerifier interface {
	// VerifyConfirmation checks the proofs of both legs of an exchange.
	VerifyConfirmation(m *ledger.MatchedOffer, inProof, outProof []byte) error
	// VerifyUnlock checks that side fulfilled its leg of an exchange.
	VerifyUnlock(m *ledger.MatchedOffer, side tx.Side, proof []byte) error
}

// NonEmptyProofs accepts any non-empty proof. It stands in until
// foreign-chain light clients are available.
type NonEmptyProofs struct{}

func (NonEmptyProofs) VerifyConfirmation(_ *ledger.MatchedOffer, inProof, outProof []byte) error {
	if len(inProof) == 0 {
		return fmt.Errorf("%w: tx_in_proof", ErrMissingProof)
	}
	if len(outProof) == 0 {
		return fmt.Errorf("%w: tx_out_proof", ErrMissingProof)
	}
	return nil
}

func (NonEmptyProofs) VerifyUnlock(_ *ledger.MatchedOffer, _ tx.Side, proof []byte) error {
	if len(proof) == 0 {
		return fmt.Errorf("%w: tx_proof", ErrMissingProof)
	}
	return nil
}
