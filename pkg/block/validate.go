package block

import (
	"errors"
	"fmt"

	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Validation errors.
var (
	ErrNilHeader           = errors.New("block has nil header")
	ErrNoTransactions      = errors.New("block has no transactions")
	ErrBadMerkleRoot       = errors.New("merkle root mismatch")
	ErrZeroTimestamp       = errors.New("block timestamp is zero")
	ErrNoMinting           = errors.New("first transaction must be minting")
	ErrMultipleMinting     = errors.New("multiple minting transactions in block")
	ErrBlockTooLarge       = errors.New("block too large")
	ErrDuplicateBlockInput = errors.New("duplicate input across transactions in block")
)

// Validate checks block structure and internal consistency.
// It does not look at chain state; see internal/validation for that.
func (b *Block) Validate() error {
	if b.Header == nil {
		return ErrNilHeader
	}
	if b.Header.Timestamp == 0 {
		return ErrZeroTimestamp
	}
	if len(b.Transactions) == 0 {
		return ErrNoTransactions
	}
	for i, t := range b.Transactions {
		if err := tx.CheckWellFormed(t); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}

	if size := b.Size(); size < 0 || size > MaxSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrBlockTooLarge, size, MaxSize)
	}

	if _, ok := b.Transactions[0].Tx.(*tx.MintingTx); !ok {
		return ErrNoMinting
	}
	for i, t := range b.Transactions[1:] {
		if _, ok := t.Tx.(*tx.MintingTx); ok {
			return fmt.Errorf("tx %d: %w", i+1, ErrMultipleMinting)
		}
	}

	expectedRoot := ComputeMerkleRoot(b.TxHashes())
	if b.Header.MerkleRoot != expectedRoot {
		return fmt.Errorf("%w: header=%s computed=%s", ErrBadMerkleRoot, b.Header.MerkleRoot, expectedRoot)
	}

	spent := make(map[types.Outpoint]int)
	for i, t := range b.Transactions {
		for _, in := range t.Tx.Body().Inputs {
			if prevTx, exists := spent[in.PrevOut]; exists {
				return fmt.Errorf("tx %d: %w: outpoint %s also spent in tx %d",
					i, ErrDuplicateBlockInput, in.PrevOut, prevTx)
			}
			spent[in.PrevOut] = i
		}
	}

	return nil
}
