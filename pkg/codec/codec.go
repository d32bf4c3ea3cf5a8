// Package codec encodes and decodes every on-chain entity through one
// type-tagged registry.
package codec

import (
	"fmt"

	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/tx"
)

// ErrUnknownTag is returned for tags outside the registry.
var ErrUnknownTag = tx.ErrUnknownTag

// Encode encodes an Input, Output, Transaction, *tx.Signed or *block.Block.
func Encode(v interface{}) ([]byte, error) {
	switch e := v.(type) {
	case tx.Input:
		return tx.EncodeInput(e)
	case *tx.Input:
		return tx.EncodeInput(*e)
	case tx.Output:
		return tx.EncodeOutput(e)
	case tx.Transaction:
		return tx.Encode(e)
	case *tx.Signed:
		return tx.EncodeSigned(e)
	case *block.Block:
		return e.Encode()
	default:
		return nil, fmt.Errorf("%w: cannot encode %T", ErrUnknownTag, v)
	}
}

// Decode decodes any registered entity. The concrete type of the result
// is selected by the leading tag.
func Decode(data []byte) (interface{}, error) {
	tag, _, err := tx.Unwrap(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tx.TagInput:
		return tx.DecodeInput(data)
	case tx.TagTransferOutput, tx.TagXpeerOutput, tx.TagXpeerFeeOutput:
		return tx.DecodeOutput(data)
	case tx.TagTransfer, tx.TagMinting, tx.TagOffer, tx.TagMatch, tx.TagConfirmation, tx.TagUnlockingDeposit:
		return tx.Decode(data)
	case tx.TagSigned:
		return tx.DecodeSigned(data)
	case tx.TagBlock:
		return block.Decode(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, uint8(tag))
	}
}

// TagOf returns the registry tag of an encoding without decoding its payload.
func TagOf(data []byte) (tx.Tag, error) {
	tag, _, err := tx.Unwrap(data)
	return tag, err
}
