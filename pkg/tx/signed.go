package tx

import (
	"bytes"
	"fmt"

	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Signed wraps a transaction with one signature per input, in input order.
// A MintingTx travels in a Signed envelope with no signatures.
type Signed struct {
	Tx         Transaction `json:"transaction"`
	Signatures [][]byte    `json:"signatures"`
}

// Hash returns the hash of the wrapped transaction.
func (s *Signed) Hash() types.Hash {
	return Hash(s.Tx)
}

// Clone returns a deep copy.
func (s *Signed) Clone() *Signed {
	cp := &Signed{Tx: s.Tx.Clone()}
	if s.Signatures != nil {
		cp.Signatures = make([][]byte, len(s.Signatures))
		for i, sig := range s.Signatures {
			cp.Signatures[i] = bytes.Clone(sig)
		}
	}
	return cp
}

// Size returns the length of the canonical encoding.
func (s *Signed) Size() int {
	return len(mustEncode(EncodeSigned(s)))
}

// Sign signs t with one signer per input. signers[i] must own the UTXO
// spent by input i; a nil signer leaves an empty signature (fee inputs).
func Sign(t Transaction, signers ...crypto.Signer) (*Signed, error) {
	ins := t.Body().Inputs
	if len(signers) != len(ins) {
		return nil, fmt.Errorf("need %d signers, got %d", len(ins), len(signers))
	}
	hash := Hash(t)
	sigs := make([][]byte, len(ins))
	for i, signer := range signers {
		if signer == nil {
			sigs[i] = []byte{}
			continue
		}
		sig, err := signer.Sign(hash[:])
		if err != nil {
			return nil, fmt.Errorf("sign input %d: %w", i, err)
		}
		sigs[i] = sig
	}
	return &Signed{Tx: t, Signatures: sigs}, nil
}

// Unsigned wraps a transaction that carries no inputs, such as a MintingTx.
func Unsigned(t Transaction) *Signed {
	return &Signed{Tx: t, Signatures: [][]byte{}}
}
