// Package block defines the block type, its hash and its structural checks.
package block

import (
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// MaxSize is the largest accepted encoded block, in bytes.
const MaxSize = 1 << 20

// Block represents a block in the chain. The first transaction of every
// block after genesis is its MintingTx.
type Block struct {
	Header       *Header      `json:"header"`
	Transactions []*tx.Signed `json:"transactions"`
}

// NewBlock creates a new block with the given header and transactions.
func NewBlock(header *Header, txs []*tx.Signed) *Block {
	return &Block{
		Header:       header,
		Transactions: txs,
	}
}

// Genesis returns the zero-value block stored at height 0.
func Genesis() *Block {
	return &Block{Header: &Header{}, Transactions: []*tx.Signed{}}
}

// Hash returns the block header hash.
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash()
}

// TxHashes returns the hash of every transaction, in block order.
func (b *Block) TxHashes() []types.Hash {
	hashes := make([]types.Hash, len(b.Transactions))
	for i, t := range b.Transactions {
		hashes[i] = t.Hash()
	}
	return hashes
}

// Clone returns a deep copy.
func (b *Block) Clone() *Block {
	cp := &Block{}
	if b.Header != nil {
		h := *b.Header
		cp.Header = &h
	}
	if b.Transactions != nil {
		cp.Transactions = make([]*tx.Signed, len(b.Transactions))
		for i, t := range b.Transactions {
			cp.Transactions[i] = t.Clone()
		}
	}
	return cp
}
