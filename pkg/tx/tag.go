package tx

import "fmt"

// Tag identifies the concrete type of an encoded entity. Every encoding
// is an RLP list [tag, rlp(payload)].
type Tag uint8

// Type registry. Values are part of the wire format.
const (
	TagInput            Tag = 0
	TagTransferOutput   Tag = 1
	TagXpeerOutput      Tag = 2
	TagXpeerFeeOutput   Tag = 3
	TagTransfer         Tag = 4
	TagSigned           Tag = 5
	TagMinting          Tag = 6
	TagOffer            Tag = 7
	TagMatch            Tag = 8
	TagConfirmation     Tag = 9
	TagUnlockingDeposit Tag = 10
	TagBlock            Tag = 11
)

var tagNames = map[Tag]string{
	TagInput:            "TxInput",
	TagTransferOutput:   "TransferOutput",
	TagXpeerOutput:      "XpeerOutput",
	TagXpeerFeeOutput:   "XpeerFeeOutput",
	TagTransfer:         "Transaction",
	TagSigned:           "SignedTransaction",
	TagMinting:          "MintingTransaction",
	TagOffer:            "OfferTransaction",
	TagMatch:            "MatchTransaction",
	TagConfirmation:     "ConfirmationTransaction",
	TagUnlockingDeposit: "UnlockingDepositTransaction",
	TagBlock:            "Block",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}
