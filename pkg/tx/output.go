package tx

import (
	"fmt"
	"math"

	"github.com/xpeer-network/chasm/pkg/types"
)

// Output is one of TransferOutput, XpeerOutput or XpeerFeeOutput.
type Output interface {
	Amount() uint64
	Tag() Tag
	Clone() Output
}

// TransferOutput pays Value to a native address.
type TransferOutput struct {
	Value    uint64        `json:"value"`
	Receiver types.Address `json:"receiver"`
}

// XpeerOutput is the native leg of an exchange. The receiver may spend it
// once the exchange is resolved; the sender may reclaim it after the
// exchange has been matched for ExchangeTimeout without resolution.
type XpeerOutput struct {
	Value    uint64        `json:"value"`
	Receiver types.Address `json:"receiver"`
	Sender   types.Address `json:"sender"`
	Exchange types.Hash    `json:"exchange"`
}

// XpeerFeeOutput funds the confirmation of an exchange. It can only be
// spent by a Confirmation.
type XpeerFeeOutput struct {
	Value uint64 `json:"value"`
}

func (o *TransferOutput) Amount() uint64 { return o.Value }
func (o *XpeerOutput) Amount() uint64    { return o.Value }
func (o *XpeerFeeOutput) Amount() uint64 { return o.Value }

func (o *TransferOutput) Tag() Tag { return TagTransferOutput }
func (o *XpeerOutput) Tag() Tag    { return TagXpeerOutput }
func (o *XpeerFeeOutput) Tag() Tag { return TagXpeerFeeOutput }

func (o *TransferOutput) Clone() Output {
	return &TransferOutput{Value: o.Value, Receiver: o.Receiver.Clone()}
}

func (o *XpeerOutput) Clone() Output {
	return &XpeerOutput{
		Value:    o.Value,
		Receiver: o.Receiver.Clone(),
		Sender:   o.Sender.Clone(),
		Exchange: o.Exchange,
	}
}

func (o *XpeerFeeOutput) Clone() Output {
	return &XpeerFeeOutput{Value: o.Value}
}

// SumOutputs returns the total value of outs.
// Returns an error if the sum overflows uint64.
func SumOutputs(outs []Output) (uint64, error) {
	var total uint64
	for _, out := range outs {
		if total > math.MaxUint64-out.Amount() {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Amount()
	}
	return total, nil
}

func cloneOutputs(outs []Output) []Output {
	if outs == nil {
		return nil
	}
	cp := make([]Output, len(outs))
	for i, o := range outs {
		cp[i] = o.Clone()
	}
	return cp
}
