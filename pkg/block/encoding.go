package block

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

type blockWire struct {
	PrevHash     types.Hash
	MerkleRoot   types.Hash
	Difficulty   uint64
	Nonce        uint64
	Timestamp    uint64
	Transactions [][]byte
}

// Encode returns the tagged encoding of the block.
func (b *Block) Encode() ([]byte, error) {
	if b.Header == nil {
		return nil, ErrNilHeader
	}
	txs := make([][]byte, len(b.Transactions))
	for i, t := range b.Transactions {
		enc, err := tx.EncodeSigned(t)
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		txs[i] = enc
	}
	return tx.Wrap(tx.TagBlock, blockWire{
		PrevHash:     b.Header.PrevHash,
		MerkleRoot:   b.Header.MerkleRoot,
		Difficulty:   b.Header.Difficulty,
		Nonce:        b.Header.Nonce,
		Timestamp:    b.Header.Timestamp,
		Transactions: txs,
	})
}

// Size returns the length of the encoded block, or -1 if it cannot be encoded.
func (b *Block) Size() int {
	enc, err := b.Encode()
	if err != nil {
		return -1
	}
	return len(enc)
}

// Decode parses a tagged block encoding.
func Decode(data []byte) (*Block, error) {
	tag, body, err := tx.Unwrap(data)
	if err != nil {
		return nil, err
	}
	if tag != tx.TagBlock {
		return nil, fmt.Errorf("%w: got %s, want %s", tx.ErrUnexpectedTag, tag, tx.TagBlock)
	}
	var w blockWire
	if err := rlp.DecodeBytes(body, &w); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	txs := make([]*tx.Signed, len(w.Transactions))
	for i, raw := range w.Transactions {
		s, err := tx.DecodeSigned(raw)
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		txs[i] = s
	}
	return &Block{
		Header: &Header{
			PrevHash:   w.PrevHash,
			MerkleRoot: w.MerkleRoot,
			Difficulty: w.Difficulty,
			Nonce:      w.Nonce,
			Timestamp:  w.Timestamp,
		},
		Transactions: txs,
	}, nil
}
